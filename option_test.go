package netpak

import (
	"errors"
	"testing"
)

func TestCodecOption(t *testing.T) {
	codec := RawCodec{}
	opt := CodecOption(codec)

	var opts options
	opt(&opts)

	if opts.codec != codec {
		t.Error("codec not set correctly")
	}
}

func TestBufferSizeOption(t *testing.T) {
	opt := BufferSizeOption(100)

	var opts options
	opt(&opts)

	if opts.bufferSize != 100 {
		t.Errorf("bufferSize = %d, want 100", opts.bufferSize)
	}
}

func TestMaxPackageSizeOption(t *testing.T) {
	opt := MaxPackageSizeOption(2048)

	var opts options
	opt(&opts)

	if opts.maxPackageSize != 2048 {
		t.Errorf("maxPackageSize = %d, want 2048", opts.maxPackageSize)
	}
}

func TestLoggerOption(t *testing.T) {
	logger := &mockLogger{}
	opt := LoggerOption(logger)

	var opts options
	opt(&opts)

	if opts.logger != logger {
		t.Error("logger not set correctly")
	}
}

func TestCheckOptions_DefaultValues(t *testing.T) {
	var opts options

	if err := checkOptions(&opts); err != nil {
		t.Fatalf("checkOptions failed: %v", err)
	}

	if opts.bufferSize != defaultBufferSize {
		t.Errorf("bufferSize = %d, want %d", opts.bufferSize, defaultBufferSize)
	}
	if opts.maxPackageSize != defaultMaxPackageSize {
		t.Errorf("maxPackageSize = %d, want %d", opts.maxPackageSize, defaultMaxPackageSize)
	}
	if opts.codec == nil {
		t.Error("codec not defaulted")
	}
	if opts.logger == nil {
		t.Error("logger not defaulted")
	}
}

func TestCheckOptions_NegativeBufferSize(t *testing.T) {
	opts := options{bufferSize: -1}

	if err := checkOptions(&opts); !errors.Is(err, ErrInvalidBufferSize) {
		t.Errorf("checkOptions = %v, want ErrInvalidBufferSize", err)
	}
}

func TestCheckOptions_NegativeMaxPackageSize(t *testing.T) {
	opts := options{maxPackageSize: -1}

	if err := checkOptions(&opts); !errors.Is(err, ErrInvalidMaxPackageSize) {
		t.Errorf("checkOptions = %v, want ErrInvalidMaxPackageSize", err)
	}
}

func TestCheckOptions_ExplicitZeroBufferSize(t *testing.T) {
	var opts options
	BufferSizeOption(0)(&opts)

	if err := checkOptions(&opts); !errors.Is(err, ErrInvalidBufferSize) {
		t.Errorf("checkOptions = %v, want ErrInvalidBufferSize", err)
	}
}

func TestCheckOptions_ExplicitZeroMaxPackageSize(t *testing.T) {
	var opts options
	MaxPackageSizeOption(0)(&opts)

	if err := checkOptions(&opts); !errors.Is(err, ErrInvalidMaxPackageSize) {
		t.Errorf("checkOptions = %v, want ErrInvalidMaxPackageSize", err)
	}
}

func TestCheckOptions_KeepsExplicitValues(t *testing.T) {
	opts := options{bufferSize: 64, maxPackageSize: 512}

	if err := checkOptions(&opts); err != nil {
		t.Fatalf("checkOptions failed: %v", err)
	}

	if opts.bufferSize != 64 {
		t.Errorf("bufferSize = %d, want 64", opts.bufferSize)
	}
	if opts.maxPackageSize != 512 {
		t.Errorf("maxPackageSize = %d, want 512", opts.maxPackageSize)
	}
}
