package utils

type WeaveJob struct {
	ID               string
	TxID             string
	OutputPath       string
	Concurrency      int
	GatewayURL       string
	ProgressFunc     func(downloaded, total int64)
	Metadata         map[string]any
	HTTPClientConfig HTTPClientConfig
}

type DownloadEntry struct {
	OutputPath string `yaml:"op"`
	TxID       string `yaml:"tx"`
}
