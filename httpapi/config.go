package httpapi

// Config defines HTTP transport settings.
type Config struct {
	Addr        string
	BaseURL     string
	BasePath    string
	AuthToken   string
	HistorySize int
	// CloseOnConsumerDisconnect reports consumerClosed when the last consumer stream goes away.
	CloseOnConsumerDisconnect bool
}
