package league

import "fmt"

// League is one league tracked by the platform. Label is the name the
// scrape feed uses for the league; Season is the active season partition.
type League struct {
	ID     string
	Label  string
	Season string
}

func (l League) Validate() error {
	if l.ID == "" {
		return fmt.Errorf("league id is required")
	}
	if l.Label == "" {
		return fmt.Errorf("league label is required")
	}
	if l.Season == "" {
		return fmt.Errorf("league season is required")
	}

	return nil
}
