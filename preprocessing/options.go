package preprocessing

// DefaultOutlierMultiplier is the IQR multiplier used unless overridden.
const DefaultOutlierMultiplier = 1.5

type options struct {
	customValue       string
	rangeMin          float64
	rangeMax          float64
	removeOutliers    bool
	outlierMultiplier float64
}

func defaultOptions() options {
	return options{
		rangeMin:          0,
		rangeMax:          1,
		outlierMultiplier: DefaultOutlierMultiplier,
	}
}

// Option configures Apply.
type Option func(*options)

// WithCustomValue sets the literal written by fill_custom.
func WithCustomValue(value string) Option {
	return func(o *options) {
		o.customValue = value
	}
}

// WithRange sets the target bounds of normalize (default [0, 1]).
func WithRange(min, max float64) Option {
	return func(o *options) {
		o.rangeMin = min
		o.rangeMax = max
	}
}

// WithOutlierRemoval runs remove_outliers on the result of the main method.
func WithOutlierRemoval() Option {
	return func(o *options) {
		o.removeOutliers = true
	}
}

// WithOutlierMultiplier sets k in [Q1 - k·IQR, Q3 + k·IQR].
func WithOutlierMultiplier(k float64) Option {
	return func(o *options) {
		o.outlierMultiplier = k
	}
}
