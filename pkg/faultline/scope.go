// scope.go implements the mutable ambient context attached to captured events.

package faultline

import "sync"

// ContextManager holds the mutable ambient state attached to every
// subsequently captured event: user identity, tags, extra data, a severity
// override, a grouping fingerprint, and a request snapshot.
//
// All getters return defensive copies of mutable containers, and all
// mutation is serialized behind a mutex so a shared Tracker can be used from
// concurrent goroutines. Applications handling many logical requests at once
// should still prefer one Tracker per unit of work: interleaved SetUser and
// SetTag calls from different requests will otherwise leak one request's
// context into another's event.
type ContextManager struct {
	mu          sync.Mutex
	user        *User
	tags        map[string]string
	extra       map[string]any
	level       Severity
	fingerprint []string
	request     *Request
}

// NewContextManager creates an empty context.
func NewContextManager() *ContextManager {
	return &ContextManager{
		tags:  make(map[string]string),
		extra: make(map[string]any),
	}
}

// SetUser replaces the user context. Pass nil to unset.
func (c *ContextManager) SetUser(user *User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = cloneUser(user)
}

// GetUser returns a copy of the user context, or nil if unset.
func (c *ContextManager) GetUser() *User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneUser(c.user)
}

// SetTag sets a single tag.
func (c *ContextManager) SetTag(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tags[key] = value
}

// SetTags merges tags into the existing mapping. Existing keys are
// overwritten; the mapping is never replaced wholesale.
func (c *ContextManager) SetTags(tags map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range tags {
		c.tags[k] = v
	}
}

// GetTags returns a copy of all tags.
func (c *ContextManager) GetTags() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneStringMap(c.tags)
}

// SetExtra sets a single extra value.
func (c *ContextManager) SetExtra(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.extra[key] = cloneValue(value)
}

// SetExtras merges extra values into the existing mapping.
func (c *ContextManager) SetExtras(extras map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range extras {
		c.extra[k] = cloneValue(v)
	}
}

// GetExtras returns a copy of all extra values.
func (c *ContextManager) GetExtras() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneAnyMap(c.extra)
}

// SetLevel sets a severity override applied to subsequently captured events.
// Pass the empty severity to unset.
func (c *ContextManager) SetLevel(level Severity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.level = level
}

// GetLevel returns the severity override, or the empty severity if unset.
func (c *ContextManager) GetLevel() Severity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.level
}

// SetFingerprint replaces the grouping fingerprint.
func (c *ContextManager) SetFingerprint(fingerprint []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fingerprint = cloneStrings(fingerprint)
}

// GetFingerprint returns a copy of the grouping fingerprint.
func (c *ContextManager) GetFingerprint() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneStrings(c.fingerprint)
}

// SetRequest stores a snapshot of the request. The request is copied by
// value, so later mutation of the caller's live request does not change
// previously captured events. Pass nil to unset.
func (c *ContextManager) SetRequest(request *Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.request = cloneRequest(request)
}

// GetRequest returns a copy of the request snapshot, or nil if unset.
func (c *ContextManager) GetRequest() *Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneRequest(c.request)
}

// Clear resets every field to its empty default.
func (c *ContextManager) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = nil
	c.tags = make(map[string]string)
	c.extra = make(map[string]any)
	c.level = ""
	c.fingerprint = nil
	c.request = nil
}
