package parser

import (
	"errors"
	"fmt"
	"strings"
)

// Kind names one of the supported line grammars.
type Kind string

const (
	KindCoordinator Kind = "coordinator"
	KindUvicorn     Kind = "uvicorn"
	KindGin         Kind = "gin"
	KindCelery      Kind = "celery"
	KindCrawler     Kind = "crawler"
	KindNginxAccess Kind = "nginx_access"
	KindNginxError  Kind = "nginx_error"
)

// ErrUnknownKind is returned for a grammar name outside the supported set.
var ErrUnknownKind = errors.New("unknown parser kind")

// Kinds lists every supported grammar.
func Kinds() []Kind {
	return []Kind{
		KindCoordinator, KindUvicorn, KindGin, KindCelery,
		KindCrawler, KindNginxAccess, KindNginxError,
	}
}

// New returns a fresh parser for the given grammar.
func New(kind Kind) (Parser, error) {
	switch kind {
	case KindCoordinator:
		return NewCoordinatorParser(), nil
	case KindUvicorn:
		return NewUvicornParser(), nil
	case KindGin:
		return NewGinParser(), nil
	case KindCelery:
		return NewCeleryParser(), nil
	case KindCrawler:
		return NewCrawlerParser(), nil
	case KindNginxAccess:
		return NewNginxAccessParser(), nil
	case KindNginxError:
		return NewNginxErrorParser(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// DefaultKind picks the grammar for a service that has no explicit override.
// The coordinator and search API run under uvicorn, so their access lines
// are what reaches the monitor.
func DefaultKind(service string) Kind {
	s := strings.ToLower(service)
	switch {
	case s == "coordinator", s == "search_api", strings.HasSuffix(s, "_api"):
		return KindUvicorn
	case strings.Contains(s, "celery"):
		return KindCelery
	case strings.Contains(s, "crawler"):
		return KindCrawler
	// "nginx" contains "gin", so it has to be matched first.
	case strings.Contains(s, "nginx") && strings.Contains(s, "error"):
		return KindNginxError
	case strings.Contains(s, "nginx"):
		return KindNginxAccess
	case s == "ai_evaluator", strings.Contains(s, "ollama"), strings.Contains(s, "gin"):
		return KindGin
	default:
		return KindCoordinator
	}
}
