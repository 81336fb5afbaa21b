package browser

import "github.com/mj1618/quadview/internal/platform"

func init() {
	platform.NewProviderFunc = func(opts platform.ProviderOptions) (*platform.Provider, error) {
		b, err := Launch(opts)
		if err != nil {
			return nil, err
		}
		p := &platform.Provider{
			Windows:  b,
			Surface:  b.surface,
			Events:   b,
			Controls: b.controls,
		}
		p.SetCloser(b.Close)
		return p, nil
	}
}
