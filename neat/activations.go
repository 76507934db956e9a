package neat

import (
	"fmt"
	"math"
)

// ActivationType defines the type for activation functions.
type ActivationType func(input float64, params ...float64) float64

// ActivationFunctions maps function names to the actual activation functions.
// Names match the ones accepted by neat-python config files.
var ActivationFunctions = map[string]ActivationType{
	"sigmoid":  Sigmoid,
	"tanh":     Tanh,
	"sin":      Sine,
	"sine":     Sine,
	"cosine":   Cosine,
	"gauss":    Gaussian,
	"gaussian": Gaussian,
	"relu":     ReLU,
	"elu":      ELU,
	"softplus": Softplus,
	"identity": Identity,
	"clamped":  Clamped,
	"inv":      Inv,
	"log":      Log,
	"exp":      Exp,
	"abs":      Absolute,
	"absolute": Absolute,
	"hat":      Hat,
	"square":   Square,
	"cube":     Cube,
}

// GetActivation retrieves an activation function by name.
func GetActivation(name string) (ActivationType, error) {
	if fn, ok := ActivationFunctions[name]; ok {
		return fn, nil
	}
	return nil, fmt.Errorf("unknown activation function: %s", name)
}

// Sigmoid is the logistic function with neat-python's steepness of 5.
// The node response is applied to the input before this is called.
func Sigmoid(x float64, params ...float64) float64 {
	z := clamp(5.0*x, -60.0, 60.0)
	return 1.0 / (1.0 + math.Exp(-z))
}

// Tanh is the hyperbolic tangent with neat-python's input scaling of 2.5.
func Tanh(x float64, params ...float64) float64 {
	z := clamp(2.5*x, -60.0, 60.0)
	return math.Tanh(z)
}

// ReLU (Rectified Linear Unit) activation function.
func ReLU(x float64, params ...float64) float64 {
	return math.Max(0, x)
}

// ELU activation function with alpha 1.
func ELU(x float64, params ...float64) float64 {
	if x > 0 {
		return x
	}
	return math.Exp(x) - 1
}

// Softplus activation function.
func Softplus(x float64, params ...float64) float64 {
	z := clamp(5.0*x, -60.0, 60.0)
	return 0.2 * math.Log(1+math.Exp(z))
}

// Identity activation function (linear).
func Identity(x float64, params ...float64) float64 {
	return x
}

// Clamped activation function (clamps output between -1 and 1).
func Clamped(x float64, params ...float64) float64 {
	return clamp(x, -1.0, 1.0)
}

// Gaussian activation function.
func Gaussian(x float64, params ...float64) float64 {
	z := clamp(x, -3.4, 3.4)
	return math.Exp(-5.0 * z * z)
}

// Absolute value activation function.
func Absolute(x float64, params ...float64) float64 {
	return math.Abs(x)
}

// Sine activation function.
func Sine(x float64, params ...float64) float64 {
	z := clamp(5.0*x, -60.0, 60.0)
	return math.Sin(z)
}

// Cosine activation function.
func Cosine(x float64, params ...float64) float64 {
	return math.Cos(x)
}

// Inv returns 1/x, or 0 for x == 0.
func Inv(x float64, params ...float64) float64 {
	if x == 0.0 {
		return 0.0
	}
	return 1.0 / x
}

// Log activation function (natural logarithm of max(1e-7, x)).
func Log(x float64, params ...float64) float64 {
	return math.Log(math.Max(1e-7, x))
}

// Exp activation function (e^x) with the input clamped to avoid overflow.
func Exp(x float64, params ...float64) float64 {
	return math.Exp(clamp(x, -60.0, 60.0))
}

// Hat activation function (triangular pulse centered at 0).
func Hat(x float64, params ...float64) float64 {
	return math.Max(0.0, 1.0-math.Abs(x))
}

// Square activation function (x^2).
func Square(x float64, params ...float64) float64 {
	return x * x
}

// Cube activation function (x^3).
func Cube(x float64, params ...float64) float64 {
	return x * x * x
}
