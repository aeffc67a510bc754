package models

import "time"

type SentimentKind string

const (
	KindNews   SentimentKind = "news"
	KindSocial SentimentKind = "social"
	KindExpert SentimentKind = "expert"
)

type Polarity string

const (
	Positive Polarity = "positive"
	Negative Polarity = "negative"
	Neutral  Polarity = "neutral"
)

func (p Polarity) Sign() float64 {
	switch p {
	case Positive:
		return 1
	case Negative:
		return -1
	default:
		return 0
	}
}

type SentimentItem struct {
	Source     string        `json:"source"`
	Kind       SentimentKind `json:"kind"`
	Polarity   Polarity      `json:"sentiment"`
	Confidence float64       `json:"confidence"`
	Time       time.Time     `json:"timestamp"`
}

// RawDocument: то, что отдаёт источник. Если Polarity пустая, документ ещё надо оценить.
type RawDocument struct {
	Source     string        `json:"source"`
	Kind       SentimentKind `json:"kind"`
	Text       string        `json:"text"`
	Polarity   Polarity      `json:"sentiment,omitempty"`
	Confidence float64       `json:"confidence,omitempty"`
	Time       time.Time     `json:"timestamp"`
}

func (d RawDocument) Scored() bool { return d.Polarity != "" }

type CompositeSentiment struct {
	Score  float64 `json:"score"`
	Signal Signal  `json:"signal"`
	// Confidence: максимальная уверенность среди элементов, масштабирует размер сделки.
	Confidence float64         `json:"confidence"`
	Items      []SentimentItem `json:"items"`
}
