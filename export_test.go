package pipeline

import "time"

// Test-only exports for internal functions.
var (
	PatternParams = patternParams
	SplitPattern  = splitPattern
	BearerToken   = bearerToken
)

// SetClock replaces the time source of the breaker.
func (cb *CircuitBreaker) SetClock(now func() time.Time) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.now = now
}

// Negotiate exposes Accept negotiation on the default codecs.
func Negotiate(accept string) (string, bool) {
	enc, ok := defaultSettings.codecs.negotiate(accept)
	if !ok {
		return "", false
	}
	return enc.ContentType(), true
}

// DecoderFor exposes Content-Type lookup on the default codecs.
func DecoderFor(contentType string) (string, bool) {
	dec, ok := defaultSettings.codecs.decoderFor(contentType)
	if !ok {
		return "", false
	}
	return dec.ContentType(), true
}
