package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&GpsLog{},
	&GpsLogPoint{},
}

// GpsLog is one recorded track. Width, color and visibility drive the
// map rendering; Properties holds the session configuration the log was
// recorded with, as JSON.
type GpsLog struct {
	ID           int64     `json:"id" gorm:"primarykey"`
	StartTs      time.Time `json:"startTs" gorm:"index:idx_gpslogs_start_ts"`
	EndTs        time.Time `json:"endTs"`
	LengthMeters float64   `json:"lengthMeters"`
	Text         string    `json:"text" gorm:"size:255"`
	Width        float32   `json:"width"`
	Color        string    `json:"color" gorm:"size:64"`
	Visible      bool      `json:"visible"`

	Properties datatypes.JSON `json:"properties"`

	Points []GpsLogPoint `json:"-" gorm:"foreignKey:LogID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (*GpsLog) TableName() string {
	return "gpslogs"
}

// GpsLogPoint is one accepted track point. Points are append-only; they
// are never updated or deleted individually, only with the whole log.
// Position carries the 3857 projection of Longitude/Latitude in WKB for
// direct map consumption.
type GpsLogPoint struct {
	ID        int64   `json:"id" gorm:"primarykey"`
	LogID     int64   `json:"logId" gorm:"index:idx_gpslog_points_log_id"`
	Longitude float64 `json:"lon"`
	Latitude  float64 `json:"lat"`
	Altitude  float64 `json:"altim"`
	TimeMs    int64   `json:"ts"`

	Position geom.Point `json:"-"`
}

func (*GpsLogPoint) TableName() string {
	return "gpslog_data_points"
}
