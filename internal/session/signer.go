package session

import (
	"net/http"
	"sync"
)

// Route names an API operation. Requests are signed by route, never by URL shape.
type Route string

// Class selects which credential signs a route.
type Class int

const (
	ClassUser Class = iota
	ClassAdmin
)

// Classifier maps routes to credential classes. Unregistered routes are user routes.
type Classifier struct {
	mu     sync.RWMutex
	routes map[Route]Class
}

func NewClassifier() *Classifier {
	return &Classifier{routes: make(map[Route]Class)}
}

func (c *Classifier) Register(class Class, routes ...Route) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range routes {
		c.routes[r] = class
	}
}

func (c *Classifier) Classify(route Route) Class {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if class, ok := c.routes[route]; ok {
		return class
	}
	return ClassUser
}

type Signer interface {
	Sign(req *http.Request) error
}

type SignerFunc func(req *http.Request) error

func (f SignerFunc) Sign(req *http.Request) error { return f(req) }

// Bearer signs with whatever token the callback returns; an empty token leaves the
// request unsigned so the backend answers 401.
func Bearer(token func() string) Signer {
	return SignerFunc(func(req *http.Request) error {
		if t := token(); t != "" {
			req.Header.Set("Authorization", "Bearer "+t)
		}
		return nil
	})
}

// Signers picks the signing strategy for a route.
type Signers struct {
	classifier *Classifier
	byClass    map[Class]Signer
}

// NewSigners wires the user and admin bearer strategies to svc's tokens.
func NewSigners(svc *Service, classifier *Classifier) *Signers {
	return &Signers{
		classifier: classifier,
		byClass: map[Class]Signer{
			ClassUser:  Bearer(svc.UserToken),
			ClassAdmin: Bearer(svc.AdminToken),
		},
	}
}

func (s *Signers) Sign(route Route, req *http.Request) error {
	signer, ok := s.byClass[s.classifier.Classify(route)]
	if !ok {
		return nil
	}
	return signer.Sign(req)
}
