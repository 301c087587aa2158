package subsystems

// ComponentConfigurer is a common interface for component factories and configuration builders,
// such as the remote store, snapshot store and cross-context mirror builders.
type ComponentConfigurer[T any] interface {
	// Build is called by the client to create an implementation instance. Applications should not
	// need to call this method.
	Build(clientContext ClientContext) (T, error)
}
