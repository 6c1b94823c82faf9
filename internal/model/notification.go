package model

import (
	"time"
)

// NotificationType categorizes a notification by the business event behind it.
type NotificationType string

const (
	TypeSale       NotificationType = "sale"
	TypeInventory  NotificationType = "inventory"
	TypeCollection NotificationType = "collection"
	TypeTask       NotificationType = "task"
	TypeSystem     NotificationType = "system"
	TypeGeneric    NotificationType = "generic"
)

// Priority indicates how urgently a notification should be surfaced.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// Notification represents a single item in the user's notification feed
type Notification struct {
	ID        string                 `json:"id"`
	Type      NotificationType       `json:"type"`
	Priority  Priority               `json:"priority"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Read      bool                   `json:"read"`
	ReadAt    *time.Time             `json:"readAt,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
	ActionURL string                 `json:"actionUrl,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Pagination carries cursor metadata for a listed page
type Pagination struct {
	HasMore bool `json:"hasMore"`
}

// ListResponse represents the server's notification page envelope
type ListResponse struct {
	Success     bool           `json:"success"`
	Data        []Notification `json:"data"`
	UnreadCount int            `json:"unreadCount"`
	Pagination  Pagination     `json:"pagination"`
}

// CountResponse represents the unread-count envelope
type CountResponse struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
}

// AckResponse represents a bare success acknowledgment
type AckResponse struct {
	Success bool `json:"success"`
}

// NotificationStats aggregates feed totals by type and priority
type NotificationStats struct {
	Total      int                      `json:"total"`
	Unread     int                      `json:"unread"`
	ByType     map[NotificationType]int `json:"byType"`
	ByPriority map[Priority]int         `json:"byPriority"`
}

// StatsResponse represents the stats envelope
type StatsResponse struct {
	Success bool              `json:"success"`
	Stats   NotificationStats `json:"stats"`
}
