package core

// Default config constants
const (
	DefaultPort      = "5000"
	DefaultGinMode   = "release"
	DefaultAudioDir  = "static/audio"
	DefaultStaticDir = "static"
	DefaultRateLimit = 60
	CORSMaxAge       = "86400"
)

// Content type and header constants
const (
	ContentTypeJSON     = "application/json"
	ContentTypeAudioMP3 = "audio/mpeg"
	HeaderContentType   = "Content-Type"
	HeaderAuthorization = "Authorization"
	HeaderReferer       = "HTTP-Referer"
	HeaderTitle         = "X-Title"
	HeaderRequestID     = "X-Request-ID"
	AuthBearerPrefix    = "Bearer "
)

// Role constants
const (
	RoleUser = "user"
)
