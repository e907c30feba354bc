// Package events contains the WebSocket message contracts pushed to dashboards.
package events

import (
	"time"

	"fuelpulse/pkg/contracts/domain"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// MessageTypeComparisonUpdated carries a recomputed operator comparison
	MessageTypeComparisonUpdated MessageType = "comparison.updated"

	// MessageTypeMarketRefreshed announces fresh product summaries
	MessageTypeMarketRefreshed MessageType = "market.refreshed"

	// Connection messages
	MessageTypeConnect MessageType = "connect"
	MessageTypeError   MessageType = "error"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage represents a complete WebSocket message
type WebSocketMessage struct {
	BaseMessage
	Data interface{} `json:"data,omitempty"`
}

// NewMessage builds an envelope stamped with the current UTC time
func NewMessage(messageType MessageType, data interface{}, traceID string) WebSocketMessage {
	return WebSocketMessage{
		BaseMessage: BaseMessage{
			Type:      messageType,
			Timestamp: time.Now().UTC(),
			TraceID:   traceID,
		},
		Data: data,
	}
}

// ConnectData is sent to a client right after the upgrade
type ConnectData struct {
	ClientID   string `json:"client_id"`
	APIVersion string `json:"api_version"`
}

// ErrorData describes a failure reported over the socket
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ComparisonUpdatedData is the payload of comparison.updated
type ComparisonUpdatedData struct {
	StationID  string            `json:"station_id"`
	Comparison domain.Comparison `json:"comparison"`
}

// MarketRefreshedData is the payload of market.refreshed
type MarketRefreshedData struct {
	Products  []string                `json:"products"`
	Summaries []domain.ProductSummary `json:"summaries,omitempty"`
}
