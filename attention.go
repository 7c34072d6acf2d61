package g15desktop

import "slices"

// ServiceAttentionKey is the attention source used while the service is not
// running.
const ServiceAttentionKey = "service"

// ServiceNotRunningMessage is shown while the service is not running.
const ServiceNotRunningMessage = "g15-desktop-service is not running."

// AttentionMessage is a pending attention request.
type AttentionMessage struct {
	// Source of the request: a screen path or [ServiceAttentionKey].
	Source string

	// Message to display. May be empty.
	Message string
}

// attentionSet keeps attention messages in the order they were requested.
type attentionSet struct {
	keys     []string
	messages map[string]string
}

func newAttentionSet() *attentionSet {
	return &attentionSet{
		messages: make(map[string]string),
	}
}

// add inserts message for source. It reports whether source was absent.
func (a *attentionSet) add(source, message string) bool {
	if _, exists := a.messages[source]; exists {
		return false
	}

	a.keys = append(a.keys, source)
	a.messages[source] = message

	return true
}

// remove deletes message of source. It reports whether source was present.
func (a *attentionSet) remove(source string) bool {
	if _, exists := a.messages[source]; !exists {
		return false
	}

	delete(a.messages, source)
	a.keys = slices.DeleteFunc(a.keys, func(key string) bool {
		return key == source
	})

	return true
}

func (a *attentionSet) reset() {
	a.keys = nil
	clear(a.messages)
}

func (a *attentionSet) len() int {
	return len(a.keys)
}

// first returns the oldest pending message.
func (a *attentionSet) first() (AttentionMessage, bool) {
	if len(a.keys) == 0 {
		return AttentionMessage{}, false
	}

	source := a.keys[0]

	return AttentionMessage{Source: source, Message: a.messages[source]}, true
}

func (a *attentionSet) list() []AttentionMessage {
	list := make([]AttentionMessage, len(a.keys))
	for idx, source := range a.keys {
		list[idx] = AttentionMessage{Source: source, Message: a.messages[source]}
	}

	return list
}
