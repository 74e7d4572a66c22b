// Package summary reduces projected draws to quantile bands.
//
// A Band holds the median and the symmetric central interval of the values
// that share a key (an observation row or a group). Quantiles use linear
// interpolation between order statistics (Hyndman & Fan type 7), the default
// of R and NumPy.
package summary
