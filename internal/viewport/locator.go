package viewport

// FindActive picks the viewport that every operation on a window targets.
//
// Recreation attaches the replacement before the old surface is guaranteed
// to be gone, so both may be listed at once. The recreated viewport with the
// highest generation always wins, even over a base viewport still attached.
// Without any recreated viewport, a single base viewport is active. Anything
// else yields ErrViewportNotFound.
func FindActive(viewports []ChildViewport) (ChildViewport, error) {
	var (
		newest    ChildViewport
		recreated bool
		base      ChildViewport
		bases     int
	)
	for _, vp := range viewports {
		if vp.Kind.Recreated {
			if !recreated || vp.Kind.ID > newest.Kind.ID {
				newest = vp
				recreated = true
			}
			continue
		}
		base = vp
		bases++
	}

	if recreated {
		return newest, nil
	}
	if bases == 1 {
		return base, nil
	}
	return ChildViewport{}, ErrViewportNotFound
}
