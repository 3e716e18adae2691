package types

// ListenerInfo holds the runtime listening info of the gateway.
type ListenerInfo struct {
	Address string `json:"address"`
	Port    int    `json:"port"`
}
