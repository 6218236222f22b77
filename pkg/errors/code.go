package errors

import "net/http"

// Common errors.
var (
	// ErrInvalidParam indicates a malformed or missing request parameter.
	ErrInvalidParam = Register(&Errno{
		Code: MakeCode(ServiceCommon, CategoryRequest, 1),
		HTTP: http.StatusBadRequest,
		Msg:  "invalid request parameter",
	})

	// ErrBind indicates a request body that could not be parsed.
	ErrBind = Register(&Errno{
		Code: MakeCode(ServiceCommon, CategoryRequest, 2),
		HTTP: http.StatusBadRequest,
		Msg:  "failed to parse request body",
	})

	// ErrNotFound indicates a missing resource.
	ErrNotFound = Register(&Errno{
		Code: MakeCode(ServiceCommon, CategoryNotFound, 1),
		HTTP: http.StatusNotFound,
		Msg:  "resource not found",
	})

	// ErrInternal indicates an unclassified internal error.
	ErrInternal = Register(&Errno{
		Code: MakeCode(ServiceCommon, CategoryInternal, 1),
		HTTP: http.StatusInternalServerError,
		Msg:  "internal server error",
	})

	// ErrDatabase indicates a relational store failure.
	ErrDatabase = Register(&Errno{
		Code: MakeCode(ServiceCommon, CategoryDatabase, 1),
		HTTP: http.StatusInternalServerError,
		Msg:  "database operation failed",
	})

	// ErrTimeout indicates an operation exceeded its deadline.
	ErrTimeout = Register(&Errno{
		Code: MakeCode(ServiceCommon, CategoryTimeout, 1),
		HTTP: http.StatusGatewayTimeout,
		Msg:  "operation timed out",
	})
)

// RAG service errors.
var (
	// ErrDocumentNotFound indicates a document id with no stored record.
	ErrDocumentNotFound = Register(&Errno{
		Code: MakeCode(ServiceRAG, CategoryNotFound, 1),
		HTTP: http.StatusNotFound,
		Msg:  "document not found",
	})

	// ErrEmbeddingUnavailable indicates the embedding backend could not
	// produce a vector. Transient.
	ErrEmbeddingUnavailable = Register(&Errno{
		Code:      MakeCode(ServiceRAG, CategoryUnavailable, 1),
		HTTP:      http.StatusServiceUnavailable,
		Msg:       "embedding backend unavailable",
		retryable: true,
	})

	// ErrSearchBackend indicates the vector or lexical search backend
	// failed. Transient.
	ErrSearchBackend = Register(&Errno{
		Code:      MakeCode(ServiceRAG, CategoryUnavailable, 2),
		HTTP:      http.StatusServiceUnavailable,
		Msg:       "search backend error",
		retryable: true,
	})

	// ErrIndexWrite indicates a write to the vector or lexical index
	// failed. Transient.
	ErrIndexWrite = Register(&Errno{
		Code:      MakeCode(ServiceRAG, CategoryUnavailable, 3),
		HTTP:      http.StatusServiceUnavailable,
		Msg:       "index write failed",
		retryable: true,
	})

	// ErrGeneration indicates the chat model failed to produce an answer.
	ErrGeneration = Register(&Errno{
		Code: MakeCode(ServiceRAG, CategoryGeneration, 1),
		HTTP: http.StatusBadGateway,
		Msg:  "answer generation failed",
	})

	// ErrDocumentEmpty indicates a document whose text yields no indexable
	// chunks. Permanent: retrying cannot fix the input.
	ErrDocumentEmpty = Register(&Errno{
		Code: MakeCode(ServiceRAG, CategoryData, 1),
		HTTP: http.StatusUnprocessableEntity,
		Msg:  "document produced no indexable content",
	})

	// ErrTaskQueueFull indicates the indexing queue rejected a submission.
	ErrTaskQueueFull = Register(&Errno{
		Code:      MakeCode(ServiceRAG, CategoryUnavailable, 4),
		HTTP:      http.StatusServiceUnavailable,
		Msg:       "indexing queue is full",
		retryable: true,
	})
)
