package task

import "math/rand"

const (
	idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	idLength   = 6
)

// GenerateID returns a random six character base36 id that does not appear
// in existing.
func GenerateID(existing []string) string {
	taken := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		taken[id] = struct{}{}
	}
	for {
		id := randomID()
		if _, ok := taken[id]; !ok {
			return id
		}
	}
}

func randomID() string {
	b := make([]byte, idLength)
	for i := range b {
		b[i] = idAlphabet[rand.Intn(len(idAlphabet))]
	}
	return string(b)
}
