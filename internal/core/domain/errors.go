package domain

import "errors"

var (
	ErrAuthRejected         = errors.New("authorization rejected")
	ErrMalformedRequest     = errors.New("malformed payment request")
	ErrAdmissionRejected    = errors.New("too many concurrent requests")
	ErrUpstreamsUnavailable = errors.New("no upstream available")
	ErrUpstreamRejected     = errors.New("upstream rejected payment")
)
