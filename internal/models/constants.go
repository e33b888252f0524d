package models

const (
	SyncStatusPending   = "pending"
	SyncStatusRetry     = "retry"
	SyncStatusCompleted = "completed"
	SyncStatusFailed    = "failed"
)

const (
	ViewModeGrid = "grid"
	ViewModeList = "list"
)

const (
	// DefaultSessionTTL время жизни сессии в Redis
	DefaultSessionTTL = 24 * 60 * 60 // 24 часа в секундах

	// WorkerQueueSize размер очереди воркера
	WorkerQueueSize = 128

	// DefaultJobsSheetName лист, в который выгружаются работы
	DefaultJobsSheetName = "Jobs"

	// DefaultSheetsTimeout таймаут запросов к Google Sheets
	DefaultSheetsTimeout = 15 // секунд

	// RateLimitBurst запас токенов для HTTP-лимитера по умолчанию
	RateLimitBurst = 5
)
