package game

// DefaultRegistry registers the built-in states: idle and script
// An empty scriptSource falls back to DefaultScript
func DefaultRegistry(scriptSource string) *Registry {
	if scriptSource == "" {
		scriptSource = DefaultScript
	}
	reg := NewRegistry()
	reg.Register("idle", NewIdle)
	reg.Register("script", ScriptFactory("script", scriptSource))
	return reg
}
