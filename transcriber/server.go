package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"sync"
	"time"

	"murmur/encoder"
)

// DefaultEndpoint is the local OpenAI-compatible transcription server.
const DefaultEndpoint = "http://127.0.0.1:8756/v1/audio/transcriptions"

const serverAttempts = 3

// ServerBackend talks to an OpenAI-compatible /audio/transcriptions
// endpoint. Segments are uploaded as FLAC to cut upload time roughly
// in half against raw PCM.
type ServerBackend struct {
	endpoint string
	key      ModelKey
	client   *TracedClient
	warmOnce sync.Once

	mu          sync.Mutex
	lastMetrics *NetworkMetrics
}

func NewServer(endpoint string, key ModelKey) *ServerBackend {
	return &ServerBackend{
		endpoint: endpoint,
		key:      key,
		client:   NewTracedClient(),
	}
}

func (s *ServerBackend) Name() string { return "server" }

func (s *ServerBackend) Close() error { return nil }

// Metrics reports the network timing of the most recent request.
func (s *ServerBackend) Metrics() *NetworkMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastMetrics
}

type serverResponse struct {
	Text     string `json:"text"`
	Segments []struct {
		Text         string  `json:"text"`
		NoSpeechProb float64 `json:"no_speech_prob"`
	} `json:"segments"`
}

func (s *ServerBackend) Transcribe(ctx context.Context, req Request) ([]string, error) {
	s.warmOnce.Do(func() { go s.client.WarmConnection(s.endpoint) })

	flacData, err := encodeFLAC(req.Samples)
	if err != nil {
		return nil, err
	}
	body, contentType, err := s.buildForm(flacData, req)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= serverAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 250 * time.Millisecond):
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, "POST", s.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", contentType)

		resp, err := s.client.Do(httpReq)
		if err != nil {
			lastErr = err
			continue
		}
		s.mu.Lock()
		s.lastMetrics = resp.Metrics
		s.mu.Unlock()

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error %d: %s", resp.StatusCode, truncate(resp.Body, 200))
			continue
		}
		if resp.StatusCode != 200 {
			return nil, fmt.Errorf("server error %d: %s", resp.StatusCode, truncate(resp.Body, 200))
		}
		return parseServerResponse(resp.Body)
	}
	return nil, fmt.Errorf("after %d attempts: %w", serverAttempts, lastErr)
}

func (s *ServerBackend) buildForm(flacData []byte, req Request) ([]byte, string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio.flac")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(flacData); err != nil {
		return nil, "", err
	}

	writer.WriteField("model", s.key.Model)
	writer.WriteField("response_format", "verbose_json")
	if req.Language != "" {
		writer.WriteField("language", req.Language)
	}
	writer.WriteField("vad_filter", "true")
	writer.WriteField("vad_parameters[min_silence_duration_ms]", strconv.Itoa(req.VAD.MinSilenceMs))
	writer.WriteField("vad_parameters[speech_pad_ms]", strconv.Itoa(req.VAD.SpeechPadMs))
	writer.WriteField("no_speech_threshold", strconv.FormatFloat(req.VAD.NoSpeechThreshold, 'f', 2, 64))
	writer.WriteField("condition_on_previous_text", strconv.FormatBool(req.VAD.ConditionOnPreviousText))
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body.Bytes(), writer.FormDataContentType(), nil
}

func parseServerResponse(body []byte) ([]string, error) {
	var sResp serverResponse
	if err := json.Unmarshal(body, &sResp); err != nil {
		return nil, fmt.Errorf("response parse error: %w", err)
	}
	if len(sResp.Segments) == 0 {
		if sResp.Text == "" {
			return nil, nil
		}
		return []string{sResp.Text}, nil
	}
	segments := make([]string, 0, len(sResp.Segments))
	for _, seg := range sResp.Segments {
		segments = append(segments, seg.Text)
	}
	return segments, nil
}

func encodeFLAC(samples []int16) ([]byte, error) {
	enc, err := encoder.NewFlac()
	if err != nil {
		return nil, err
	}
	for off := 0; off < len(samples); off += encoder.BlockSize {
		end := min(off+encoder.BlockSize, len(samples))
		if err := enc.EncodeBlock(samples[off:end]); err != nil {
			return nil, err
		}
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
