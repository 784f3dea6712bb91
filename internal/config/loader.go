package config

import (
	"fmt"
	"os"

	"github.com/golobby/cast"
)

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// LoadCredentials loads and validates credentials.<ext>. Any error here is
// fatal at startup.
func LoadCredentials(path string) (Credentials, error) {
	f, err := feederForPath(path)
	if err != nil {
		return Credentials{}, err
	}
	raw, err := f.feed(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("reading credentials %s: %w", path, err)
	}

	creds := Credentials{
		Host:     stringField(raw, "host"),
		VPN:      stringField(raw, "vpn"),
		Username: stringField(raw, "username"),
		Password: stringField(raw, "password"),
	}
	if err := creds.Validate(); err != nil {
		return Credentials{}, fmt.Errorf("credentials %s: %w", path, err)
	}
	return creds, nil
}

func stringField(raw map[string]any, key string) string {
	v, ok := raw[key]
	if !ok {
		return ""
	}
	s, err := cast.ToString(v)
	if err != nil {
		return ""
	}
	return s
}

// allowedSubscriptionKeys is the strict key set a per-topic subscription
// table entry may use; anything else is rejected.
var allowedSubscriptionKeys = map[string]bool{"filename": true, "timer": true}

// LoadSubscriptionTable loads subscriptionTable.<ext>: a top-level table
// keyed by topic, whose values are {filename, timer?}. Returns one
// SubscriptionInfo per topic, unvalidated against the Script Host (that
// happens in the Engine's Subscribe handler).
func LoadSubscriptionTable(path string) ([]SubscriptionInfo, error) {
	f, err := feederForPath(path)
	if err != nil {
		return nil, err
	}
	raw, err := f.feed(path)
	if err != nil {
		return nil, fmt.Errorf("reading subscription table %s: %w", path, err)
	}

	infos := make([]SubscriptionInfo, 0, len(raw))
	for topic, v := range raw {
		entry, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: topic %q is not a table", ErrInvalidSubscription, topic)
		}

		for key := range entry {
			if !allowedSubscriptionKeys[key] {
				return nil, fmt.Errorf("%w: %q under topic %q", ErrUnknownSubscriptionKey, key, topic)
			}
		}

		filename, ok := entry["filename"]
		if !ok {
			return nil, fmt.Errorf("%w: topic %q missing filename", ErrInvalidSubscription, topic)
		}
		scriptName, err := cast.ToString(filename)
		if err != nil {
			return nil, fmt.Errorf("%w: topic %q filename: %v", ErrInvalidSubscription, topic, err)
		}

		var period uint32
		if rawTimer, ok := entry["timer"]; ok {
			n, err := cast.ToInt64(rawTimer)
			if err != nil || n < 1 {
				return nil, fmt.Errorf("%w: topic %q timer %v", ErrInvalidTimerValue, topic, rawTimer)
			}
			period = uint32(n)
		}

		info := SubscriptionInfo{Topic: topic, ScriptName: scriptName, PeriodSeconds: period}
		if err := info.Validate(); err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}
