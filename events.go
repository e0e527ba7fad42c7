package cachemux

// Events receives named cache events. Purely observational: implementations
// MUST be cheap and non-blocking because the repository calls them on hot
// paths. Wrap a slow sink with events/async.
//
// seconds is the write TTL in whole seconds; 0 means no expiry.
// tags is nil for untagged repositories.
type Events interface {
	// Read path.
	Retrieving(storeName, key string, tags []string)
	Hit(storeName, key string, value any, tags []string)
	Missed(storeName, key string, tags []string)
	RetrievingMany(storeName string, keys []string, tags []string)

	// Write path.
	Writing(storeName, key string, value any, seconds int64, tags []string)
	Written(storeName, key string, value any, seconds int64, tags []string)
	WriteFailed(storeName, key string, value any, seconds int64, tags []string)
	WritingMany(storeName string, keys []string, seconds int64, tags []string)

	// Delete path.
	Forgetting(storeName, key string, tags []string)
	Forgot(storeName, key string, tags []string)
	ForgetFailed(storeName, key string, tags []string)
}

// NopEvents is the default no-op sink.
type NopEvents struct{}

func (NopEvents) Retrieving(string, string, []string)              {}
func (NopEvents) Hit(string, string, any, []string)                {}
func (NopEvents) Missed(string, string, []string)                  {}
func (NopEvents) RetrievingMany(string, []string, []string)        {}
func (NopEvents) Writing(string, string, any, int64, []string)     {}
func (NopEvents) Written(string, string, any, int64, []string)     {}
func (NopEvents) WriteFailed(string, string, any, int64, []string) {}
func (NopEvents) WritingMany(string, []string, int64, []string)    {}
func (NopEvents) Forgetting(string, string, []string)              {}
func (NopEvents) Forgot(string, string, []string)                  {}
func (NopEvents) ForgetFailed(string, string, []string)            {}
