package pipeline

import "log/slog"

// settings is the per-router runtime shared by every request it serves.
type settings struct {
	codecs       *codecRegistry
	errorHandler ErrorHandler
	logger       *slog.Logger
}

// defaultSettings serves requests built without a router. Its nil
// errorHandler resolves to WriteError.
var defaultSettings = &settings{
	codecs: newCodecRegistry(nil, nil),
}

func (s *settings) handleError(r *Request, err *HTTPError) *Response {
	if s.errorHandler == nil {
		return WriteError(r, err)
	}
	return s.errorHandler(r, err)
}

func (s *settings) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
