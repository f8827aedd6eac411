package loudness

// config carries the optional channel-layout hints used to derive the
// BS.1770 weighting vector.
type config struct {
	channelMask   uint32
	channelLayout string
}

// Option mutates the integrator configuration.
type Option func(*config)

// WithChannelMask supplies the WAV extensible channel mask (0 = absent).
func WithChannelMask(mask uint32) Option {
	return func(cfg *config) {
		cfg.channelMask = mask
	}
}

// WithChannelLayout supplies an FFmpeg-style layout string ("" = absent).
func WithChannelLayout(channelLayout string) Option {
	return func(cfg *config) {
		cfg.channelLayout = channelLayout
	}
}

func applyOptions(opts ...Option) config {
	var cfg config
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
