package models

import (
	"time"

	"gorm.io/gorm"
)

// WatchEvent is one row of the watch log, the engagement source that carries
// a duration signal. Deleted marks a soft-deleted row upstream.
type WatchEvent struct {
	SubscriberID   int     `gorm:"column:subsr_id"`
	ItemID         int     `gorm:"column:program_id"`
	ItemName       string  `gorm:"column:program_name"`
	EpisodeNum     string  `gorm:"column:episode_num"`
	LogDate        string  `gorm:"column:log_dt"`
	WatchedSeconds float64 `gorm:"column:use_tms"`
	RuntimeSeconds float64 `gorm:"column:disp_rtm_sec"`
	WatchCount     int     `gorm:"column:count_watch"`
	Deleted        bool    `gorm:"column:e_bool"`
}

func (WatchEvent) TableName() string { return "vods_sumut" }

// ContentEvent is one row of the content log, a presence-only engagement
// source with no duration fields.
type ContentEvent struct {
	SubscriberID int    `gorm:"column:subsr_id"`
	ItemID       int    `gorm:"column:program_id"`
	ItemName     string `gorm:"column:program_name"`
	EpisodeNum   string `gorm:"column:episode_num"`
	LogDate      string `gorm:"column:log_dt"`
	Deleted      bool   `gorm:"column:e_bool"`
}

func (ContentEvent) TableName() string { return "contlog" }

// Item is the VOD catalog metadata for one title.
type Item struct {
	ItemID      int    `gorm:"column:program_id"`
	Name        string `gorm:"column:program_name"`
	Type        string `gorm:"column:ct_cl"`
	Genre       string `gorm:"column:program_genre"`
	ReleaseDate string `gorm:"column:release_date"`
	AgeLimit    string `gorm:"column:age_limit"`
	Deleted     bool   `gorm:"column:e_bool"`
}

func (Item) TableName() string { return "vodinfo" }

// Run records one pipeline execution: where it got to, how the model scored,
// and how long it took. One row per run, written whether the run succeeded or
// failed.
type Run struct {
	gorm.Model
	RunID        string `gorm:"uniqueIndex"`
	Status       string // "succeeded" or "failed"
	Error        string
	Interactions int
	TrainRatings int
	TestRatings  int
	RMSE         float64
	Precision    float64
	Recall       float64
	ObjectName   string
	StartedAt    time.Time
	FinishedAt   time.Time
}
