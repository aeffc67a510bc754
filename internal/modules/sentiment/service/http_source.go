package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"multisignal_bot/internal/models"

	"github.com/bytedance/sonic"
)

// HTTPSource: JSON-массив документов по GET. Сбор и чистка текста живут на той стороне.
type HTTPSource struct {
	name   string
	url    string
	kind   models.SentimentKind
	client *http.Client
}

func NewHTTPSource(name, url string, kind models.SentimentKind, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		name:   name,
		url:    url,
		kind:   kind,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSource) Name() string { return s.name }

func (s *HTTPSource) Fetch(ctx context.Context) (docs []models.RawDocument, err error) {
	defer func() {
		if err != nil {
			err = models.NewError(models.KindConnectivity, "HTTPSource.Fetch", fmt.Errorf("%s: %w", s.name, err))
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	if err = sonic.Unmarshal(body, &docs); err != nil {
		return nil, err
	}
	for i := range docs {
		if docs[i].Kind == "" {
			docs[i].Kind = s.kind
		}
		if docs[i].Source == "" {
			docs[i].Source = s.name
		}
	}
	return docs, nil
}

// HTTPScorer: внешний NLP-сервис. POST {"text": ...} -> {"compound": x}.
type HTTPScorer struct {
	url    string
	client *http.Client
}

func NewHTTPScorer(url string, timeout time.Duration) *HTTPScorer {
	return &HTTPScorer{url: url, client: &http.Client{Timeout: timeout}}
}

func (s *HTTPScorer) Score(ctx context.Context, text string) (pol models.Polarity, conf float64, err error) {
	defer func() {
		if err != nil {
			err = models.NewError(models.KindConnectivity, "HTTPScorer.Score", err)
		}
	}()

	payload, err := sonic.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", 0, err
	}
	if resp.StatusCode/100 != 2 {
		return "", 0, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var out struct {
		Compound float64 `json:"compound"`
	}
	if err = sonic.Unmarshal(body, &out); err != nil {
		return "", 0, err
	}
	pol, conf = PolarityFromCompound(out.Compound)
	return pol, conf, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
