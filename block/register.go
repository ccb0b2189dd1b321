package block

// Info is block metadata a Block may optionally expose, in the style of
// rclone's fs.RegInfo (name, description, declared options) attached at
// registration time via init().
type Info struct {
	// Name identifies the block kind, e.g. "const" or "counter".
	Name string
	// Description is a short human-readable summary.
	Description string
}

// Describable is implemented by blocks that want their Info surfaced by the
// system builder's logging and metrics (purely informational; the System
// builder works with any Block regardless of whether it implements this).
type Describable interface {
	Describe() Info
}
