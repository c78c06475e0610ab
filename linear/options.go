package linear

// Option is a function that configures LinearRegression
type Option func(*LinearRegression)

// WithFitIntercept sets whether to calculate the intercept
func WithFitIntercept(fit bool) Option {
	return func(lr *LinearRegression) {
		lr.fitIntercept = fit
	}
}

// WithAlpha sets the L2 penalty added to the diagonal of X^T X. The
// intercept is not penalized. One-hot encoded inputs are collinear with the
// intercept, so a small positive alpha keeps the system solvable.
func WithAlpha(alpha float64) Option {
	return func(lr *LinearRegression) {
		lr.alpha = alpha
	}
}
