package sleep

// Record keys. The names match the records written by earlier releases so
// existing data keeps loading.
const (
	KeyHistory   = "somnus_logs"
	KeySleeping  = "somnus_is_sleeping"
	KeyStartTime = "somnus_start_time"
)

// Store is the durable key-value collaborator of the Engine.
type Store interface {
	Get(key string) (value string, found bool, err error)
	Set(key, value string) error
	Delete(key string) error
}

// Batcher is implemented by stores that can commit several writes and
// deletes atomically. The Engine prefers it when completing a session.
type Batcher interface {
	Apply(sets map[string]string, deletes []string) error
}

// Unavailable returns a Store whose every operation fails with cause. An
// Engine built on it starts idle, empty and degraded.
func Unavailable(cause error) Store {
	return unavailableStore{cause: cause}
}

type unavailableStore struct{ cause error }

func (u unavailableStore) Get(string) (string, bool, error) { return "", false, u.cause }
func (u unavailableStore) Set(string, string) error         { return u.cause }
func (u unavailableStore) Delete(string) error              { return u.cause }
