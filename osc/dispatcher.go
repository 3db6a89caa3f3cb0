package osc

import (
	"errors"
	"fmt"
	"regexp"
	"runtime"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Method is an interface for OSC Methods.
type Method interface {
	HandleMessage(msg *Message)
}

// MethodFunc implements the Method interface. Type definition for an OSC Method function.
type MethodFunc func(msg *Message)

// HandleMessage calls itself with the given OSC Message. Implements the Method interface.
func (f MethodFunc) HandleMessage(msg *Message) {
	f(msg)
}

// Dispatcher handles the dispatching of received OSC Messages to Methods for their given Address.
// The zero value is ready to use.
type Dispatcher struct {
	// Logger receives recovered method panics. Nil discards them.
	Logger *zap.Logger

	mu      sync.RWMutex
	methods map[string]Method
}

// AddMethod adds a new OSC Method for the given OSC Address.
func (d *Dispatcher) AddMethod(addr string, method Method) error {
	if method == nil {
		return errors.New("AddMethod: OSC Method is nil")
	}

	if !strings.HasPrefix(addr, "/") {
		return fmt.Errorf("AddMethod: OSC Address %q must start with '/'", addr)
	}

	if strings.ContainsAny(addr, "*?,[]{}# ") {
		return fmt.Errorf("AddMethod: OSC Method may not contain any characters in \"*?,[]{}# \"")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.methods == nil {
		d.methods = make(map[string]Method)
	}

	if _, ok := d.methods[addr]; ok {
		return fmt.Errorf("AddMethod: OSC Method exists already")
	}

	d.methods[addr] = method
	return nil
}

// AddMethodFunc allows you to just pass a MethodFunc.
func (d *Dispatcher) AddMethodFunc(addr string, method MethodFunc) error {
	return d.AddMethod(addr, method)
}

// RemoveMethod removes the OSC Method for addr, if any.
func (d *Dispatcher) RemoveMethod(addr string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.methods, addr)
}

// Dispatch calls every Method whose address matches the address pattern of msg.
// It returns the number of Methods called.
func (d *Dispatcher) Dispatch(msg *Message) int {
	r, err := getRegEx(msg.Address)
	if err != nil {
		loggerOr(d.Logger).Debug("osc: invalid address pattern", zap.String("address", msg.Address), zap.Error(err))
		return 0
	}
	// The OSC Spec mentions that each address is divided into parts, so we could use a radix tree here.
	// For now, I'm gonna hope that being clever is enough
	r.Longest()
	aParts := strings.Count(msg.Address, "/")

	d.mu.RLock()
	var matched []Method
	for addr, method := range d.methods {
		if aParts == strings.Count(addr, "/") && r.FindString(addr) == addr {
			matched = append(matched, method)
		}
	}
	d.mu.RUnlock()

	for _, method := range matched {
		d.call(method, msg)
	}
	return len(matched)
}

// Attach dispatches every message forwarded by s. The returned cancel detaches the dispatcher.
func (d *Dispatcher) Attach(s *Stream) (cancel func()) {
	return s.Messages().Subscribe(func(msg *Message) { d.Dispatch(msg) }, nil)
}

func (d *Dispatcher) call(method Method, msg *Message) {
	defer func() {
		if err := recover(); err != nil {
			buf := make([]byte, 4096)
			buf = buf[:runtime.Stack(buf, false)]
			loggerOr(d.Logger).Error("osc: panic handling message",
				zap.String("address", msg.Address),
				zap.String("panic", fmt.Sprint(err)),
				zap.ByteString("stack", buf))
		}
	}()
	method.HandleMessage(msg)
}

// getRegEx returns a regexp.Regexp for the given address.
func getRegEx(pattern string) (*regexp.Regexp, error) {
	r := strings.NewReplacer(
		".", `\.`,
		"(", `\(`,
		")", `\)`,
		"+", `\+`,
		"$", `\$`,
		"^", `\^`,
		"|", `\|`,
		"*", "[^/]*",
		"{", "(",
		",", "|",
		"}", ")",
		"?", "[^/]",
		"[!", "[^",
	)
	pattern = r.Replace(pattern)

	return regexp.Compile(pattern)
}
