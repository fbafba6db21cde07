package utils

func Default[T any](p *T, d T) T {
	if p != nil {
		return *p
	}
	return d
}

func Ref[T any](v T) *T {
	return &v
}
