package netpak

// options holds the shared configuration for connections, listeners, and
// datagram endpoints.
type options struct {
	codec  Codec
	logger Logger

	bufferSize     int // size of one read from the underlying stream
	maxPackageSize int // maximum size of a single package payload

	// Track explicit sets so a supplied zero is rejected instead of being
	// indistinguishable from "use the default".
	bufferSizeSet     bool
	maxPackageSizeSet bool
}

// Option is a function that configures an entity at construction time.
type Option func(*options)

// Default configuration values.
const (
	// defaultBufferSize is the default size of a single stream read.
	defaultBufferSize = 4 * 1024
	// defaultMaxPackageSize is the default maximum size of a single package (1MB).
	defaultMaxPackageSize = 1024 * 1024
)

// CodecOption returns an Option that sets the message codec.
// When omitted, RawCodec is used and packages are plain byte slices.
func CodecOption(codec Codec) Option {
	return func(o *options) {
		o.codec = codec
	}
}

// BufferSizeOption returns an Option that sets how many bytes one read from
// the underlying stream may return. It bounds chunk size, not package size.
// The size must be positive.
func BufferSizeOption(size int) Option {
	return func(o *options) {
		o.bufferSize = size
		o.bufferSizeSet = true
	}
}

// MaxPackageSizeOption returns an Option that sets the maximum package
// payload size. Inbound frames declaring a larger payload are a protocol
// violation; outbound packages larger than this fail at Send. The size must
// be positive.
func MaxPackageSizeOption(size int) Option {
	return func(o *options) {
		o.maxPackageSize = size
		o.maxPackageSizeSet = true
	}
}

// LoggerOption returns an Option that sets the logger.
// If not set, the default slog logger will be used.
func LoggerOption(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// checkOptions validates options and fills in defaults. An explicitly
// supplied size must be positive and fails fast otherwise; a size left unset
// takes its default.
func checkOptions(opts *options) error {
	if opts.bufferSize < 0 || (opts.bufferSizeSet && opts.bufferSize == 0) {
		return ErrInvalidBufferSize
	}
	if opts.bufferSize == 0 {
		opts.bufferSize = defaultBufferSize
	}

	if opts.maxPackageSize < 0 || (opts.maxPackageSizeSet && opts.maxPackageSize == 0) {
		return ErrInvalidMaxPackageSize
	}
	if opts.maxPackageSize == 0 {
		opts.maxPackageSize = defaultMaxPackageSize
	}

	if opts.codec == nil {
		opts.codec = RawCodec{}
	}

	if opts.logger == nil {
		opts.logger = defaultLogger()
	}

	return nil
}
