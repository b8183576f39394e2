package watcher

import "slices"

// Registry maps registration tokens to the directory each one watches.
//
// It has a single writer (Watcher.Register) and is read by the dispatch loop
// through Watcher.Resolve. Both run on the same goroutine, so there is no
// locking. Entries are never removed.
type Registry struct {
	dirs map[Token]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{dirs: make(map[Token]string)}
}

// Put maps token to dir, replacing any previous entry for the same token.
// It returns the directory the token used to map to, if any.
func (r *Registry) Put(token Token, dir string) (prev string, replaced bool) {
	prev, replaced = r.dirs[token]
	r.dirs[token] = dir
	return prev, replaced
}

// Resolve returns the directory registered under token.
func (r *Registry) Resolve(token Token) (string, bool) {
	dir, ok := r.dirs[token]
	return dir, ok
}

// Lookup returns the lowest token currently mapped to dir.
func (r *Registry) Lookup(dir string) (Token, bool) {
	for _, token := range r.Tokens() {
		if r.dirs[token] == dir {
			return token, true
		}
	}
	return 0, false
}

// Len returns the number of registered tokens.
func (r *Registry) Len() int {
	return len(r.dirs)
}

// Tokens returns every registered token in ascending order.
func (r *Registry) Tokens() []Token {
	tokens := make([]Token, 0, len(r.dirs))
	for token := range r.dirs {
		tokens = append(tokens, token)
	}
	slices.Sort(tokens)
	return tokens
}
