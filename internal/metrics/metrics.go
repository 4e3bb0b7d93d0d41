package metrics

import (
	"embed"
	"math"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"learnsphere/internal/core"

	"github.com/gin-gonic/gin"
)

// StatsPageHTML holds the embedded monitoring dashboard HTML.
//
//go:embed static/index.html
var StatsPageHTML embed.FS

// AtomicRequestStats thread-safe request statistics
type AtomicRequestStats struct {
	TotalRequests      atomic.Int64
	SuccessfulRequests atomic.Int64
	FailedRequests     atomic.Int64
	TotalResponseTime  atomic.Int64
}

// MetricsConfig configuration for MetricsService
type MetricsConfig struct {
	SaveInterval time.Duration
	HistorySize  int
	Storage      core.StorageInterface
	Logger       core.Logger
}

// MetricsService collects generation and upstream attempt metrics. It
// implements core.MetricsCollector.
type MetricsService struct {
	atomicStats      AtomicRequestStats
	requestHistory   []core.RequestRecord
	historyMu        sync.RWMutex
	lastRequestTime  time.Time
	maxHistorySize   int
	storage          core.StorageInterface
	logger           core.Logger
	lastSaveTime     time.Time
	minSaveInterval  time.Duration
	done             chan struct{}
	closeOnce        sync.Once
	historyBuffer    []core.RequestRecord
	bufferMu         sync.Mutex
	bufferFlushTimer *time.Ticker
	recentRequests   []time.Time
	recentMu         sync.Mutex
	models           map[string]core.ModelStats
	modelsMu         sync.Mutex
}

// NewMetricsService creates a new MetricsService
func NewMetricsService(config MetricsConfig) *MetricsService {
	if config.HistorySize <= 0 {
		config.HistorySize = core.HistoryBufferSize
	}
	if config.Logger == nil {
		config.Logger = &core.NopLogger{}
	}
	ms := &MetricsService{
		maxHistorySize:  config.HistorySize,
		storage:         config.Storage,
		logger:          config.Logger,
		minSaveInterval: config.SaveInterval,
		done:            make(chan struct{}),
		historyBuffer:   make([]core.RequestRecord, 0, core.HistoryBatchSize),
		models:          make(map[string]core.ModelStats),
	}

	ms.bufferFlushTimer = time.NewTicker(core.HistoryFlushInterval)
	go ms.flushLoop()

	return ms
}

func (ms *MetricsService) flushLoop() {
	for {
		select {
		case <-ms.bufferFlushTimer.C:
			ms.flushBuffer()
		case <-ms.done:
			return
		}
	}
}

func (ms *MetricsService) flushBuffer() {
	ms.bufferMu.Lock()
	if len(ms.historyBuffer) == 0 {
		ms.bufferMu.Unlock()
		return
	}
	batch := ms.historyBuffer
	ms.historyBuffer = make([]core.RequestRecord, 0, core.HistoryBatchSize)
	ms.bufferMu.Unlock()

	ms.historyMu.Lock()
	ms.requestHistory = append(ms.requestHistory, batch...)
	if len(ms.requestHistory) > ms.maxHistorySize {
		ms.requestHistory = ms.requestHistory[len(ms.requestHistory)-ms.maxHistorySize:]
	}
	ms.historyMu.Unlock()
}

func pruneRecent(recent []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-1 * time.Minute)
	startIdx := 0
	for startIdx < len(recent) && recent[startIdx].Before(cutoff) {
		startIdx++
	}
	if startIdx == 0 {
		return recent
	}
	pruned := make([]time.Time, len(recent)-startIdx)
	copy(pruned, recent[startIdx:])
	return pruned
}

// RecordRequest records the outcome of one generation. model is empty when no
// model answered; errorKind is empty on success.
func (ms *MetricsService) RecordRequest(success bool, responseTime int64, model, mode, errorKind string) {
	now := time.Now()
	ms.historyMu.Lock()
	ms.lastRequestTime = now
	ms.historyMu.Unlock()
	ms.atomicStats.TotalRequests.Add(1)
	ms.atomicStats.TotalResponseTime.Add(responseTime)

	if success {
		ms.atomicStats.SuccessfulRequests.Add(1)
	} else {
		ms.atomicStats.FailedRequests.Add(1)
	}

	ms.recentMu.Lock()
	ms.recentRequests = pruneRecent(append(ms.recentRequests, now), now)
	ms.recentMu.Unlock()

	record := core.RequestRecord{
		Timestamp:    now,
		Success:      success,
		ResponseTime: responseTime,
		Model:        model,
		Mode:         mode,
		ErrorKind:    errorKind,
	}

	ms.bufferMu.Lock()
	ms.historyBuffer = append(ms.historyBuffer, record)
	shouldFlush := len(ms.historyBuffer) >= core.HistoryBatchSize
	ms.bufferMu.Unlock()

	if shouldFlush {
		ms.flushBuffer()
	}

	ms.SaveStatsDebounced()
}

// RecordHTTPRequest records HTTP request duration
func (ms *MetricsService) RecordHTTPRequest(duration time.Duration) {
	ms.atomicStats.TotalResponseTime.Add(duration.Milliseconds())
}

// RecordHTTPError records HTTP error
func (ms *MetricsService) RecordHTTPError() {
	ms.atomicStats.FailedRequests.Add(1)
}

// RecordUpstreamAttempt counts one completion attempt against model.
func (ms *MetricsService) RecordUpstreamAttempt(model, outcome string, duration time.Duration) {
	ms.modelsMu.Lock()
	defer ms.modelsMu.Unlock()

	s := ms.models[model]
	s.Attempts++
	s.TotalAttemptTime += duration.Milliseconds()
	switch outcome {
	case core.OutcomeLabelSuccess:
		s.Successes++
	case core.OutcomeLabelRetryable:
		s.Retryable++
	case core.OutcomeLabelUnavailable:
		s.Unavailable++
	case core.OutcomeLabelFatal:
		s.Fatal++
	}
	ms.models[model] = s
}

// RecordBackoff counts a retry wait on model.
func (ms *MetricsService) RecordBackoff(model string, delay time.Duration) {
	ms.modelsMu.Lock()
	defer ms.modelsMu.Unlock()

	s := ms.models[model]
	s.Backoffs++
	s.TotalBackoffMs += delay.Milliseconds()
	ms.models[model] = s
}

// GetQPS returns current QPS
func (ms *MetricsService) GetQPS() float64 {
	ms.recentMu.Lock()
	defer ms.recentMu.Unlock()

	ms.recentRequests = pruneRecent(ms.recentRequests, time.Now())
	if len(ms.recentRequests) == 0 {
		return 0
	}

	return math.Round(float64(len(ms.recentRequests))/60.0*1000) / 1000
}

// GetRequestStats returns current stats snapshot
func (ms *MetricsService) GetRequestStats() core.RequestStats {
	ms.flushBuffer()

	ms.modelsMu.Lock()
	models := make(map[string]core.ModelStats, len(ms.models))
	for k, v := range ms.models {
		models[k] = v
	}
	ms.modelsMu.Unlock()

	ms.historyMu.RLock()
	defer ms.historyMu.RUnlock()

	historyCopy := make([]core.RequestRecord, len(ms.requestHistory))
	copy(historyCopy, ms.requestHistory)

	return core.RequestStats{
		TotalRequests:      ms.atomicStats.TotalRequests.Load(),
		SuccessfulRequests: ms.atomicStats.SuccessfulRequests.Load(),
		FailedRequests:     ms.atomicStats.FailedRequests.Load(),
		TotalResponseTime:  ms.atomicStats.TotalResponseTime.Load(),
		LastRequestTime:    ms.lastRequestTime,
		RequestHistory:     historyCopy,
		Models:             models,
	}
}

// GetPeriodStats computes period statistics for multiple hour windows in a single pass.
func GetPeriodStats(history []core.RequestRecord, hourPeriods ...int) map[int]core.PeriodStats {
	if len(hourPeriods) == 0 {
		return nil
	}

	now := time.Now()
	cutoffs := make([]time.Time, len(hourPeriods))
	requests := make([]int64, len(hourPeriods))
	successful := make([]int64, len(hourPeriods))
	responseTime := make([]int64, len(hourPeriods))

	for i, hours := range hourPeriods {
		cutoffs[i] = now.Add(-time.Duration(hours) * time.Hour)
	}

	for _, record := range history {
		for i, cutoff := range cutoffs {
			if record.Timestamp.After(cutoff) {
				requests[i]++
				responseTime[i] += record.ResponseTime
				if record.Success {
					successful[i]++
				}
			}
		}
	}

	result := make(map[int]core.PeriodStats, len(hourPeriods))
	for i, hours := range hourPeriods {
		stats := core.PeriodStats{
			Requests: requests[i],
			QPS:      float64(requests[i]) / (float64(hours) * 3600.0),
		}
		if requests[i] > 0 {
			stats.SuccessRate = float64(successful[i]) / float64(requests[i]) * 100
			stats.AvgResponseTime = responseTime[i] / requests[i]
		}
		result[hours] = stats
	}
	return result
}

// ModelRow is one line of the per-model table.
type ModelRow struct {
	Model string `json:"model"`
	core.ModelStats
}

// SortedModels flattens per-model stats, busiest first.
func SortedModels(models map[string]core.ModelStats) []ModelRow {
	rows := make([]ModelRow, 0, len(models))
	for name, s := range models {
		rows = append(rows, ModelRow{Model: name, ModelStats: s})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Attempts != rows[j].Attempts {
			return rows[i].Attempts > rows[j].Attempts
		}
		return rows[i].Model < rows[j].Model
	})
	return rows
}

// Summary is the JSON body served by /api/stats.
type Summary struct {
	CurrentTime        string               `json:"currentTime"`
	CurrentQPS         float64              `json:"currentQPS"`
	TotalRequests      int64                `json:"totalRequests"`
	SuccessfulRequests int64                `json:"successfulRequests"`
	FailedRequests     int64                `json:"failedRequests"`
	AvgResponseTime    int64                `json:"avgResponseTime"`
	Last24Hours        core.PeriodStats     `json:"stats24h"`
	Last7Days          core.PeriodStats     `json:"stats7d"`
	Last30Days         core.PeriodStats     `json:"stats30d"`
	Models             []ModelRow           `json:"models"`
	RecentRequests     []core.RequestRecord `json:"recentRequests"`
}

// BuildSummary assembles a Summary from a stats snapshot.
func BuildSummary(stats core.RequestStats, qps float64, now time.Time) Summary {
	periods := GetPeriodStats(stats.RequestHistory, 24, 24*7, 24*30)
	summary := Summary{
		CurrentTime:        now.Format(core.TimeFormatDateTime),
		CurrentQPS:         qps,
		TotalRequests:      stats.TotalRequests,
		SuccessfulRequests: stats.SuccessfulRequests,
		FailedRequests:     stats.FailedRequests,
		Last24Hours:        periods[24],
		Last7Days:          periods[24*7],
		Last30Days:         periods[24*30],
		Models:             SortedModels(stats.Models),
	}
	if stats.TotalRequests > 0 {
		summary.AvgResponseTime = stats.TotalResponseTime / stats.TotalRequests
	}

	const recent = 20
	start := max(0, len(stats.RequestHistory)-recent)
	summary.RecentRequests = make([]core.RequestRecord, 0, len(stats.RequestHistory)-start)
	for i := len(stats.RequestHistory) - 1; i >= start; i-- {
		summary.RecentRequests = append(summary.RecentRequests, stats.RequestHistory[i])
	}
	return summary
}

// LoadStats loads stats from storage
func (ms *MetricsService) LoadStats() error {
	if ms.storage == nil {
		return nil
	}
	stats, err := ms.storage.LoadStats()
	if err != nil {
		return err
	}

	ms.atomicStats.TotalRequests.Store(stats.TotalRequests)
	ms.atomicStats.SuccessfulRequests.Store(stats.SuccessfulRequests)
	ms.atomicStats.FailedRequests.Store(stats.FailedRequests)
	ms.atomicStats.TotalResponseTime.Store(stats.TotalResponseTime)

	ms.historyMu.Lock()
	ms.lastRequestTime = stats.LastRequestTime
	ms.requestHistory = stats.RequestHistory
	ms.historyMu.Unlock()

	ms.modelsMu.Lock()
	for k, v := range stats.Models {
		ms.models[k] = v
	}
	ms.modelsMu.Unlock()

	return nil
}

// SaveStatsDebounced saves stats with debounce
func (ms *MetricsService) SaveStatsDebounced() {
	now := time.Now()
	ms.historyMu.Lock()
	if now.Sub(ms.lastSaveTime) < ms.minSaveInterval {
		ms.historyMu.Unlock()
		return
	}
	ms.lastSaveTime = now
	ms.historyMu.Unlock()

	if ms.storage == nil {
		return
	}

	stats := ms.GetRequestStats()
	if err := ms.storage.SaveStats(&stats); err != nil {
		ms.logger.Warn("Failed to save stats: %v", err)
	}
}

// Close saves final stats and stops
func (ms *MetricsService) Close() error {
	var err error
	ms.closeOnce.Do(func() {
		close(ms.done)
		ms.bufferFlushTimer.Stop()
		ms.flushBuffer()

		if ms.storage != nil {
			stats := ms.GetRequestStats()
			err = ms.storage.SaveStats(&stats)
		}
	})
	return err
}

// ShowStatsPage serves the stats HTML page
func ShowStatsPage(c *gin.Context) {
	data, err := StatsPageHTML.ReadFile("static/index.html")
	if err != nil {
		c.String(http.StatusInternalServerError, "Failed to load stats page")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", data)
}
