package model

// Event is a notification emitted by the engine after a committed operation.
type Event struct {
	Name  string      `json:"event_name"`
	Block uint64      `json:"block_number"`
	Pair  string      `json:"pair,omitempty"`
	Data  interface{} `json:"data"`
}
