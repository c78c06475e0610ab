package errors

import "fmt"

// UserMessage renders err as a short sentence suitable for a banner shown to
// the person using the dashboard. Internal details such as stack traces are
// left to the logs.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var (
		schemaErr     *SchemaError
		inferenceErr  *InferenceError
		validationErr *ValidationError
		numericErr    *NumericalInstabilityError
		notFittedErr  *NotFittedError
	)
	switch {
	case Is(err, ErrNoData):
		return "No data available for the current selection."
	case Is(err, ErrSelectionRequired):
		return "Please select at least one region or cereal."
	case Is(err, ErrNoPrediction):
		return "Run a prediction before exporting it."
	case As(err, &schemaErr):
		return fmt.Sprintf("The model expects a different set of inputs (%d columns expected, %d provided). Check the model artifact.",
			len(schemaErr.Expected), len(schemaErr.Got))
	case As(err, &validationErr):
		return fmt.Sprintf("Invalid value for %s: %s.", validationErr.ParamName, validationErr.Reason)
	case As(err, &numericErr):
		return "The model returned an invalid number for these inputs."
	case As(err, &notFittedErr):
		return "The prediction model is not ready."
	case As(err, &inferenceErr):
		return fmt.Sprintf("Prediction failed: %v", inferenceErr.Err)
	default:
		return fmt.Sprintf("Unexpected error: %v", err)
	}
}
