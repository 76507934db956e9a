package neat

import (
	"fmt"
	"math"
)

// AggregationType defines the type for aggregation functions.
type AggregationType func(inputs []float64) float64

// AggregationFunctions maps function names to the actual aggregation functions.
var AggregationFunctions = map[string]AggregationType{
	"sum":     AggregateSum,
	"product": AggregateProduct,
	"min":     AggregateMin,
	"max":     AggregateMax,
	"maxabs":  AggregateMaxAbs,
	"mean":    AggregateMean,
	"average": AggregateMean,
	"median":  AggregateMedian,
}

// GetAggregation retrieves an aggregation function by name.
func GetAggregation(name string) (AggregationType, error) {
	if fn, ok := AggregationFunctions[name]; ok {
		return fn, nil
	}
	return nil, fmt.Errorf("unknown aggregation function: %s", name)
}

// AggregateSum calculates the sum of the inputs.
func AggregateSum(inputs []float64) float64 {
	return Sum(inputs)
}

// AggregateProduct calculates the product of the inputs. The empty product is 1.
func AggregateProduct(inputs []float64) float64 {
	product := 1.0
	for _, v := range inputs {
		product *= v
	}
	return product
}

// AggregateMin finds the minimum value among the inputs, or 0 with no inputs.
func AggregateMin(inputs []float64) float64 {
	if len(inputs) == 0 {
		return 0.0
	}
	return MinFloat(inputs)
}

// AggregateMax finds the maximum value among the inputs, or 0 with no inputs.
func AggregateMax(inputs []float64) float64 {
	if len(inputs) == 0 {
		return 0.0
	}
	return MaxFloat(inputs)
}

// AggregateMean calculates the average of the inputs.
func AggregateMean(inputs []float64) float64 {
	return Mean(inputs)
}

// AggregateMedian calculates the median of the inputs, or 0 with no inputs.
func AggregateMedian(inputs []float64) float64 {
	if len(inputs) == 0 {
		return 0.0
	}
	return Median(inputs)
}

// AggregateMaxAbs returns the input with the largest magnitude, sign kept.
func AggregateMaxAbs(inputs []float64) float64 {
	best := 0.0
	for _, v := range inputs {
		if math.Abs(v) > math.Abs(best) {
			best = v
		}
	}
	return best
}
