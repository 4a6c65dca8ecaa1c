package config

import "fmt"

// Validate rejects configurations that would only fail later at runtime.
func (c *Config) Validate() error {
	switch c.Dispatcher.Mode {
	case "local", "asynq":
	default:
		return fmt.Errorf("dispatcher.mode must be \"local\" or \"asynq\", got %q", c.Dispatcher.Mode)
	}
	if c.Dispatcher.Mode == "asynq" && c.Redis.Address == "" {
		return fmt.Errorf("dispatcher.mode=asynq requires redis.address")
	}
	if c.Upload.MaxFileSize <= 0 {
		return fmt.Errorf("upload.max_file_size must be positive, got %d", c.Upload.MaxFileSize)
	}
	if c.Dispatcher.Workers < 0 || c.Worker.Concurrency < 0 {
		return fmt.Errorf("worker counts cannot be negative")
	}
	return nil
}
