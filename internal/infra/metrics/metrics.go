package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	MentionsFetched = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mentions_fetched_total",
		Help: "Количество выгруженных упоминаний",
	})
	SpamDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "spam_dropped_total",
		Help: "Упоминания, отброшенные спам-фильтром",
	})
	ConversationFetchErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "conversation_fetch_errors_total",
		Help: "Ошибки выгрузки бесед",
	})
	RepliesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "replies_sent_total",
		Help: "Отправленные ответы в беседах",
	})
	ContentPublished = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "content_published_total",
		Help: "Полностью опубликованные посты и треды, без ответов",
	})
	PublishFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "publish_failures_total",
		Help: "Сбои публикации по типу исхода",
	}, []string{"outcome"})
	PublishSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "thread_publish_seconds",
		Help:    "Время публикации цепочки",
		Buckets: prometheus.DefBuckets,
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: prometheus.DefBuckets,
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})

	LLMGenerationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "llm_generation_duration_seconds",
		Help:    "Длительность генерации ответа LLM",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})

	LLMTokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_tokens_total",
		Help: "Количество токенов, использованных LLM",
	}, []string{"model", "type"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		MentionsFetched,
		SpamDropped,
		ConversationFetchErrors,
		RepliesSent,
		ContentPublished,
		PublishFailures,
		PublishSeconds,
		NetworkRequestDuration,
		NetworkRequestTotal,
		LLMGenerationDuration,
		LLMTokensTotal,
	)
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// ObserveLLMGeneration записывает длительность и токены генерации LLM.
func ObserveLLMGeneration(model string, duration time.Duration, promptTokens, completionTokens, totalTokens int) {
	if model == "" {
		model = "unknown"
	}
	LLMGenerationDuration.WithLabelValues(model).Observe(duration.Seconds())
	if promptTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
	if totalTokens <= 0 {
		totalTokens = promptTokens + completionTokens
	}
	if totalTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "total").Add(float64(totalTokens))
	}
}
