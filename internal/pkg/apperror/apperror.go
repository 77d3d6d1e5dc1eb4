package apperror

// AppError is a custom error type that includes an HTTP status code and an optional underlying error.
type AppError struct {
	Code    int    // HTTP Status Code (e.g., 400, 404)
	Message string // User-facing error message
	Err     error  // The underlying error, if any (not exposed to user)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a sentinel AppError with the same code and message.
// This lets errors produced by Wrap satisfy errors.Is against the sentinel they wrap.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok || t.Err != nil {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// New creates a new AppError with a status code and message.
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new AppError wrapping an existing error.
func Wrap(err error, code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WrapAs wraps err with the code and message of an existing sentinel.
func WrapAs(sentinel *AppError, err error) *AppError {
	return Wrap(err, sentinel.Code, sentinel.Message)
}
