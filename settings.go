package crawlfront

import (
	"strconv"
	"strings"
	"time"
)

// Settings holds the scheduler, frontier and transport options. Field tags
// carry the option names as they appear in settings files.
type Settings struct {
	// StartRequestsToFrontier sends the spider's start requests to the
	// frontier as seeds instead of scheduling them locally.
	StartRequestsToFrontier bool `yaml:"START_REQUESTS_TO_FRONTIER"`

	// RequestCallbacksToFrontier lists callback names whose requests are
	// always routed to the frontier.
	RequestCallbacksToFrontier []string `yaml:"REQUEST_CALLBACKS_TO_FRONTIER"`

	// CallbackSlotPrefixMap maps a callback name to a slot prefix,
	// optionally suffixed with "/N" for the number of slots.
	CallbackSlotPrefixMap map[string]string `yaml:"CALLBACK_SLOT_PREFIX_MAP"`

	// EnableConsumerStartRequests keeps start requests local when the
	// spider consumes from a shared frontier.
	EnableConsumerStartRequests bool `yaml:"ENABLE_CONSUMER_START_REQUESTS"`

	// ConsumerFrontier names a shared frontier this crawl consumes from.
	ConsumerFrontier string `yaml:"HCF_CONSUMER_FRONTIER"`

	// StateAttributes lists the crawl-scoped state slots.
	StateAttributes []string `yaml:"STATE_ATTRIBUTES"`

	// OverusedSlotFactor is the active/concurrency ratio above which a
	// destination slot counts as overused.
	OverusedSlotFactor float64 `yaml:"OVERUSED_SLOT_FACTOR"`

	// MaxNextRequests caps each batch pulled from the frontier.
	MaxNextRequests int `yaml:"MAX_NEXT_REQUESTS"`

	// AutoStart makes the frontier start itself.
	AutoStart bool `yaml:"AUTO_START"`

	// MaxRequests finishes the frontier after this many requests (0 = unlimited).
	MaxRequests int `yaml:"MAX_REQUESTS"`

	ConcurrentRequests          int           `yaml:"CONCURRENT_REQUESTS"`
	ConcurrentRequestsPerDomain int           `yaml:"CONCURRENT_REQUESTS_PER_DOMAIN"`
	ConcurrentRequestsPerIP     int           `yaml:"CONCURRENT_REQUESTS_PER_IP"`
	DownloadDelay               time.Duration `yaml:"DOWNLOAD_DELAY"`
	RetryTimes                  int           `yaml:"RETRY_TIMES"`

	// Extra holds unrecognized options, passed to the frontier unchanged.
	Extra map[string]any `yaml:",inline"`
}

// DefaultSettings returns the settings used when an option is not given.
func DefaultSettings() Settings {
	return Settings{
		OverusedSlotFactor:          5.0,
		MaxNextRequests:             64,
		AutoStart:                   true,
		ConcurrentRequests:          16,
		ConcurrentRequestsPerDomain: 8,
		RetryTimes:                  2,
	}
}

// Validate returns an error if the settings contain invalid values.
func (s *Settings) Validate() error {
	if s.OverusedSlotFactor <= 0 {
		return Errorf(EINVALID, "OVERUSED_SLOT_FACTOR must be positive")
	}
	if s.MaxNextRequests < 0 {
		return Errorf(EINVALID, "MAX_NEXT_REQUESTS must not be negative")
	}
	if s.MaxRequests < 0 {
		return Errorf(EINVALID, "MAX_REQUESTS must not be negative")
	}
	if s.ConcurrentRequests <= 0 {
		return Errorf(EINVALID, "CONCURRENT_REQUESTS must be positive")
	}
	if s.ConcurrentRequestsPerDomain <= 0 {
		return Errorf(EINVALID, "CONCURRENT_REQUESTS_PER_DOMAIN must be positive")
	}
	if s.ConcurrentRequestsPerIP < 0 {
		return Errorf(EINVALID, "CONCURRENT_REQUESTS_PER_IP must not be negative")
	}
	if s.RetryTimes < 0 {
		return Errorf(EINVALID, "RETRY_TIMES must not be negative")
	}
	for callback, value := range s.CallbackSlotPrefixMap {
		if _, _, err := ParseSlotPrefix(value); err != nil {
			return Errorf(EINVALID, "CALLBACK_SLOT_PREFIX_MAP[%s]: %s", callback, ErrorMessage(err))
		}
	}
	return nil
}

// KeyType returns the slot key type implied by the concurrency mode: per-IP
// concurrency keys slots by address, otherwise by domain.
func (s *Settings) KeyType() KeyType {
	if s.ConcurrentRequestsPerIP > 0 {
		return KeyTypeIP
	}
	return KeyTypeDomain
}

// ParseSlotPrefix splits a slot prefix spec of the form "prefix" or
// "prefix/N". The number of slots is 0 when not given.
func ParseSlotPrefix(spec string) (prefix string, slots int, err error) {
	prefix, count, found := strings.Cut(spec, "/")
	if prefix == "" {
		return "", 0, Errorf(EINVALID, "empty slot prefix in %q", spec)
	}
	if !found {
		return prefix, 0, nil
	}
	n, err := strconv.Atoi(count)
	if err != nil || n <= 0 {
		return "", 0, Errorf(EINVALID, "invalid number of slots in %q", spec)
	}
	return prefix, n, nil
}
