package eligibility

// AllMatch reports whether every available value is covered by required.
// An empty required set is unrestricted and always matches; otherwise an empty
// available set never matches.
func AllMatch[T comparable](required, available []T) bool {
	return AllMatchFunc(required, available, func(r, a T) bool { return r == a })
}

// AnyMatch reports whether required and available share at least one value,
// with the same empty set rules as AllMatch.
func AnyMatch[T comparable](required, available []T) bool {
	return AnyMatchFunc(required, available, func(r, a T) bool { return r == a })
}

func AllMatchFunc[R, A any](required []R, available []A, eq func(R, A) bool) bool {
	if len(required) == 0 {
		return true
	}
	if len(available) == 0 {
		return false
	}
	for _, a := range available {
		if !containsFunc(required, a, eq) {
			return false
		}
	}
	return true
}

func AnyMatchFunc[R, A any](required []R, available []A, eq func(R, A) bool) bool {
	if len(required) == 0 {
		return true
	}
	if len(available) == 0 {
		return false
	}
	for _, a := range available {
		if containsFunc(required, a, eq) {
			return true
		}
	}
	return false
}

func containsFunc[R, A any](required []R, a A, eq func(R, A) bool) bool {
	for _, r := range required {
		if eq(r, a) {
			return true
		}
	}
	return false
}

// CategoryEligible reports whether a prisoner category is permitted.
func CategoryEligible(permitted []string, category string) bool {
	return AllMatch(permitted, nonEmpty(category))
}

func IncentiveEligible(permitted []string, level string) bool {
	return AllMatch(permitted, nonEmpty(level))
}

func nonEmpty(v string) []string {
	if v == "" {
		return nil
	}
	return []string{v}
}
