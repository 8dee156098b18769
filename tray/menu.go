package tray

import (
	"fyne.io/systray"
)

var (
	mRecord     *systray.MenuItem
	mCopy       *systray.MenuItem
	mDevices    *systray.MenuItem
	deviceItems []*systray.MenuItem
	deviceReady chan struct{}

	mSettings   *systray.MenuItem
	mContinuous *systray.MenuItem
	mLogin      *systray.MenuItem
	mUpdate     *systray.MenuItem
)

// Init starts the tray icon. The returned channel closes when the
// user picks Quit.
func Init() <-chan struct{} {
	deviceReady = make(chan struct{})
	go systray.Run(onReady, onExit)
	return quitCh
}

func onReady() {
	systray.SetTemplateIcon(iconIdleHi, iconIdle)
	systray.SetTooltip(appName + " – press the hotkey to dictate")

	mCopy = systray.AddMenuItem("Copy Last Transcription", "Copy the last transcription to the clipboard")
	mCopy.Disable()
	go clickLoop(mCopy, func() {
		if copyLastFn != nil {
			copyLastFn()
		}
	})

	systray.AddSeparator()

	mRecord = systray.AddMenuItem("Start Dictation", "Start or stop dictation")
	go clickLoop(mRecord, func() {
		if recording {
			if stopFn != nil {
				stopFn()
			}
		} else {
			if recordFn != nil {
				recordFn()
			}
		}
	})

	mSettings = systray.AddMenuItem("Settings", "Settings")
	mDevices = mSettings.AddSubMenuItem("Microphone", "Select input device")

	deviceMu.Lock()
	deviceItems = make([]*systray.MenuItem, 0, len(deviceNames))
	for i, name := range deviceNames {
		deviceItems = append(deviceItems, addDeviceItem(i, name, name == deviceSel))
	}
	deviceMu.Unlock()

	mContinuous = mSettings.AddSubMenuItemCheckbox("Continuous Dictation", "Transcribe while you speak instead of on stop", continuousOn)
	go clickLoop(mContinuous, func() {
		if mContinuous.Checked() {
			mContinuous.Uncheck()
		} else {
			mContinuous.Check()
		}
		if continuousCb != nil {
			continuousCb(mContinuous.Checked())
		}
	})

	mLogin = mSettings.AddSubMenuItemCheckbox("Start on Login", "Launch "+appName+" when you log in", loginOn)
	go clickLoop(mLogin, func() {
		want := !mLogin.Checked()
		if loginCb != nil {
			if err := loginCb(want); err != nil {
				return
			}
		}
		if want {
			mLogin.Check()
		} else {
			mLogin.Uncheck()
		}
	})

	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Quit "+appName)
	go clickLoop(mQuit, Quit)

	close(deviceReady)
}

func onExit() {
	closeOnce.Do(func() { close(quitCh) })
}

// clickLoop runs fn for every click until the tray shuts down.
func clickLoop(item *systray.MenuItem, fn func()) {
	for {
		select {
		case <-item.ClickedCh:
			fn()
		case <-quitCh:
			return
		}
	}
}

func addDeviceItem(idx int, name string, checked bool) *systray.MenuItem {
	label := deviceDisplayName(name)
	item := mDevices.AddSubMenuItemCheckbox(label, name, checked)
	go clickLoop(item, func() {
		deviceMu.Lock()
		// RefreshDevices may have retitled this slot, so resolve the
		// name by index at click time.
		currentName := ""
		if idx < len(deviceNames) {
			currentName = deviceNames[idx]
		}
		cb := deviceCb
		deviceMu.Unlock()
		if cb != nil && currentName != "" {
			cb(currentName)
		}
		deviceMu.Lock()
		for _, it := range deviceItems {
			it.Uncheck()
		}
		if idx < len(deviceItems) {
			deviceItems[idx].Check()
		}
		deviceMu.Unlock()
	})
	return item
}

// RefreshDevices reconciles the device submenu with the current
// catalog. Items are reused by slot; extras are hidden.
func RefreshDevices(names []string, selected string) {
	if deviceReady == nil {
		return
	}
	<-deviceReady

	deviceMu.Lock()
	defer deviceMu.Unlock()

	deviceNames = names
	deviceSel = selected

	for i, item := range deviceItems {
		if i < len(names) {
			item.SetTitle(deviceDisplayName(names[i]))
			item.SetTooltip(names[i])
			item.Show()
			if names[i] == selected {
				item.Check()
			} else {
				item.Uncheck()
			}
		} else {
			item.Hide()
			item.Uncheck()
		}
	}
	for i := len(deviceItems); i < len(names); i++ {
		deviceItems = append(deviceItems, addDeviceItem(i, names[i], names[i] == selected))
	}
}

func updateRecordingIcon(rec bool) {
	if rec {
		systray.SetIcon(iconRecHi)
		if mRecord != nil {
			mRecord.SetTitle("Stop Dictation")
		}
	} else {
		systray.SetTemplateIcon(iconIdleHi, iconIdle)
		if mRecord != nil {
			mRecord.SetTitle("Start Dictation")
		}
	}
}

func updateWarningIcon(on bool) {
	if on {
		systray.SetIcon(iconWarnHi)
	} else {
		systray.SetIcon(iconRecHi)
	}
}

func updateTooltip(msg string) {
	systray.SetTooltip(msg)
}

func updateCopyLastTitle(title string) {
	if mCopy != nil {
		mCopy.SetTitle(title)
		mCopy.Enable()
	}
}

func addUpdateMenuItem(version string) {
	if mUpdate != nil {
		mUpdate.SetTitle("⚠ Update available: " + version)
		mUpdate.Show()
		return
	}
	if mSettings == nil {
		return
	}
	mUpdate = mSettings.AddSubMenuItem("Update available: "+version, "Run \"murmur update\" to install")
}

func disableDevices() {
	if mDevices != nil {
		mDevices.Disable()
	}
}

func enableDevices() {
	if mDevices != nil {
		mDevices.Enable()
	}
}
