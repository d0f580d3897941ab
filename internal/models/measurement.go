package models

import "time"

// MeasurementUnit is the length unit a measurement set is recorded in.
type MeasurementUnit string

const (
	UnitCentimetre MeasurementUnit = "cm"
	UnitInch       MeasurementUnit = "in"
)

// Measurement is a named set of body measurements owned by one user.
type Measurement struct {
	ID           string          `db:"id" json:"id"`
	UserID       string          `db:"user_id" json:"user_id"`
	Name         string          `db:"name" json:"name"`
	Unit         MeasurementUnit `db:"unit" json:"unit"`
	Chest        *float64        `db:"chest" json:"chest,omitempty"`
	Waist        *float64        `db:"waist" json:"waist,omitempty"`
	Hips         *float64        `db:"hips" json:"hips,omitempty"`
	Shoulder     *float64        `db:"shoulder" json:"shoulder,omitempty"`
	SleeveLength *float64        `db:"sleeve_length" json:"sleeve_length,omitempty"`
	Inseam       *float64        `db:"inseam" json:"inseam,omitempty"`
	Neck         *float64        `db:"neck" json:"neck,omitempty"`
	Height       *float64        `db:"height" json:"height,omitempty"`
	Notes        string          `db:"notes" json:"notes"`
	IsDeleted    bool            `db:"is_deleted" json:"is_deleted"`
	DeletedAt    *time.Time      `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// MeasurementFilter captures list parameters. UserID is always required.
// OnlyDeleted is honoured by the unscoped repository view.
type MeasurementFilter struct {
	UserID      string
	Search      string
	Unit        MeasurementUnit
	OnlyDeleted bool
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}

// MeasurementInput is the create and update payload.
type MeasurementInput struct {
	Name         string          `json:"name" validate:"required,max=100"`
	Unit         MeasurementUnit `json:"unit" validate:"omitempty,oneof=cm in"`
	Chest        *float64        `json:"chest" validate:"omitempty,gt=0,lt=1000"`
	Waist        *float64        `json:"waist" validate:"omitempty,gt=0,lt=1000"`
	Hips         *float64        `json:"hips" validate:"omitempty,gt=0,lt=1000"`
	Shoulder     *float64        `json:"shoulder" validate:"omitempty,gt=0,lt=1000"`
	SleeveLength *float64        `json:"sleeve_length" validate:"omitempty,gt=0,lt=1000"`
	Inseam       *float64        `json:"inseam" validate:"omitempty,gt=0,lt=1000"`
	Neck         *float64        `json:"neck" validate:"omitempty,gt=0,lt=1000"`
	Height       *float64        `json:"height" validate:"omitempty,gt=0,lt=1000"`
	Notes        string          `json:"notes" validate:"max=2000"`
}
