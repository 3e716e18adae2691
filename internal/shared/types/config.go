package types

// LocalConf 包含监听相关的配置
type LocalConf struct {
	Port        int    `ini:"port"`
	WebPort     int    `ini:"web_port"` // 0 disables the web monitor
	WebUser     string `ini:"web_user"`
	WebPassword string `ini:"web_password"`
}

// ProbeConf controls how requests are framed and where paths are resolved.
type ProbeConf struct {
	Root         string `ini:"root"`    // prefixed literally to every request path
	Framing      string `ini:"framing"` // "line" or "chunk"
	MaxLineBytes int    `ini:"max_line_bytes"`
	ReadBuffer   int    `ini:"read_buffer"`
}

// LogConf contains logging specific configuration
type LogConf struct {
	Level      string `ini:"level"`
	File       string `ini:"file"`        // empty means console only
	MaxSize    int    `ini:"max_size"`    // megabytes
	MaxBackups int    `ini:"max_backups"`
	MaxAge     int    `ini:"max_age"`     // days
	Compress   bool   `ini:"compress"`
}

// Config 是统一配置结构体
type Config struct {
	LocalConf `ini:"local"`
	ProbeConf `ini:"probe"`
	LogConf   `ini:"log"`
}
