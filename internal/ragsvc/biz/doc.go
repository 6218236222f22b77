// Package biz implements the business logic of the RAG service: document
// chunking, hybrid retrieval, context construction, consultation and the
// resilient background indexing pipeline.
package biz
