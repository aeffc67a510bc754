package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"multisignal_bot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(kind models.SentimentKind, pol models.Polarity, conf float64) models.SentimentItem {
	return models.SentimentItem{Source: "t", Kind: kind, Polarity: pol, Confidence: conf}
}

func TestAggregateEmpty(t *testing.T) {
	cs := NewAggregator(nil).Aggregate(nil)
	assert.Equal(t, 0.0, cs.Score)
	assert.Equal(t, models.Hold, cs.Signal)

	cs = NewAggregator(nil).Aggregate([]models.SentimentItem{})
	assert.Equal(t, 0.0, cs.Score)
	assert.Equal(t, models.Hold, cs.Signal)
}

func TestAggregateWeights(t *testing.T) {
	a := NewAggregator(nil)

	cs := a.Aggregate([]models.SentimentItem{
		item(models.KindNews, models.Positive, 1),
		item(models.KindSocial, models.Positive, 1),
		item(models.KindExpert, models.Negative, 0.5),
		item("blog", models.Positive, 1),
		item(models.KindNews, models.Neutral, 1),
	})
	// .3 + .25 - .225 + .1
	assert.InDelta(t, 0.425, cs.Score, 1e-12)
	assert.Equal(t, models.Buy, cs.Signal)
	assert.Equal(t, 1.0, cs.Confidence)
	assert.Len(t, cs.Items, 5)
}

func TestSignalThresholds(t *testing.T) {
	cases := map[float64]models.Signal{
		0.7:   models.StrongBuy,
		0.69:  models.Buy,
		0.3:   models.Buy,
		0.29:  models.Hold,
		0:     models.Hold,
		-0.29: models.Hold,
		-0.3:  models.Sell,
		-0.69: models.Sell,
		-0.7:  models.StrongSell,
		-1.5:  models.StrongSell,
	}
	for score, want := range cases {
		assert.Equal(t, want, SignalFromScore(score), "score %v", score)
	}
}

func TestAggregateOrderIndependent(t *testing.T) {
	items := []models.SentimentItem{
		item(models.KindNews, models.Positive, 0.91),
		item(models.KindExpert, models.Negative, 0.13),
		item(models.KindSocial, models.Positive, 0.77),
		item(models.KindExpert, models.Positive, 0.42),
		item(models.KindNews, models.Negative, 0.66),
		item("forum", models.Negative, 0.99),
	}
	a := NewAggregator(nil)
	want := a.Aggregate(items)

	perm := []int{5, 3, 1, 0, 4, 2}
	shuffled := make([]models.SentimentItem, len(items))
	for i, j := range perm {
		shuffled[i] = items[j]
	}
	got := a.Aggregate(shuffled)

	assert.Equal(t, want.Score, got.Score)
	assert.Equal(t, want.Signal, got.Signal)
}

func TestAggregateDoesNotMutateInput(t *testing.T) {
	items := []models.SentimentItem{item(models.KindNews, models.Positive, 1.7)}
	cs := NewAggregator(nil).Aggregate(items)

	assert.Equal(t, 1.7, items[0].Confidence)
	assert.InDelta(t, 0.3, cs.Score, 1e-12)
	cs.Items[0].Source = "changed"
	assert.Equal(t, "t", items[0].Source)
}

func TestAggregateCustomWeights(t *testing.T) {
	a := NewAggregator(map[string]float64{"NEWS": 1})
	cs := a.Aggregate([]models.SentimentItem{item(models.KindNews, models.Negative, 0.8)})
	assert.InDelta(t, -0.8, cs.Score, 1e-12)
	assert.Equal(t, models.StrongSell, cs.Signal)
}

type stubSource struct {
	name string
	docs []models.RawDocument
	err  error
	wait *sync.WaitGroup
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(ctx context.Context) ([]models.RawDocument, error) {
	if s.wait != nil {
		s.wait.Done()
		s.wait.Wait()
	}
	return s.docs, s.err
}

type stubScorer struct{}

func (stubScorer) Score(_ context.Context, text string) (models.Polarity, float64, error) {
	if text == "boom" {
		return "", 0, errors.New("scorer down")
	}
	polarity, confidence := PolarityFromCompound(0.6)
	return polarity, confidence, nil
}

func TestCollectorFanOutJoinAll(t *testing.T) {
	// все три источника должны стартовать одновременно, иначе тест зависнет
	var started sync.WaitGroup
	started.Add(3)

	sources := []models.SentimentSource{
		&stubSource{name: "news", wait: &started, docs: []models.RawDocument{
			{Kind: models.KindNews, Polarity: models.Positive, Confidence: 0.9},
		}},
		&stubSource{name: "broken", wait: &started, err: errors.New("timeout")},
		&stubSource{name: "social", wait: &started, docs: []models.RawDocument{
			{Kind: models.KindSocial, Text: "to the moon"},
			{Kind: models.KindSocial, Text: "boom"},
		}},
	}

	done := make(chan []models.SentimentItem, 1)
	go func() { done <- NewCollector(sources, stubScorer{}, time.Second).Collect(context.Background()) }()

	select {
	case items := <-done:
		require.Len(t, items, 2)
		assert.Equal(t, "news", items[0].Source)
		assert.Equal(t, models.Positive, items[0].Polarity)
		assert.Equal(t, "social", items[1].Source)
		assert.Equal(t, models.Positive, items[1].Polarity)
		assert.InDelta(t, 0.6, items[1].Confidence, 1e-12)
	case <-time.After(5 * time.Second):
		t.Fatal("collector did not fan out")
	}
}

func TestCollectorWithoutScorerDropsRawText(t *testing.T) {
	src := &stubSource{name: "s", docs: []models.RawDocument{
		{Kind: models.KindExpert, Text: "unscored"},
		{Kind: models.KindExpert, Polarity: models.Negative, Confidence: 2},
	}}
	items := NewCollector([]models.SentimentSource{src}, nil, 0).Collect(context.Background())
	require.Len(t, items, 1)
	assert.Equal(t, 1.0, items[0].Confidence)

	assert.Nil(t, NewCollector(nil, nil, 0).Collect(context.Background()))
}

func TestPolarityFromCompound(t *testing.T) {
	p, c := PolarityFromCompound(0.05)
	assert.Equal(t, models.Positive, p)
	assert.Equal(t, 0.05, c)

	p, c = PolarityFromCompound(-0.8)
	assert.Equal(t, models.Negative, p)
	assert.Equal(t, 0.8, c)

	p, _ = PolarityFromCompound(0.01)
	assert.Equal(t, models.Neutral, p)
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"text":"ADA rallies","sentiment":"positive","confidence":0.8},{"source":"x","kind":"social","text":"meh"}]`))
	}))
	defer srv.Close()

	docs, err := NewHTTPSource("feed", srv.URL, models.KindNews, time.Second).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "feed", docs[0].Source)
	assert.Equal(t, models.KindNews, docs[0].Kind)
	assert.True(t, docs[0].Scored())
	assert.Equal(t, models.KindSocial, docs[1].Kind)
	assert.False(t, docs[1].Scored())
}

func TestHTTPSourceErrorIsConnectivity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHTTPSource("feed", srv.URL, models.KindNews, time.Second).Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindConnectivity))
}

func TestHTTPScorer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		_, _ = w.Write([]byte(`{"compound":-0.42}`))
	}))
	defer srv.Close()

	pol, conf, err := NewHTTPScorer(srv.URL, time.Second).Score(context.Background(), "bad news")
	require.NoError(t, err)
	assert.Equal(t, models.Negative, pol)
	assert.Equal(t, 0.42, conf)
}
