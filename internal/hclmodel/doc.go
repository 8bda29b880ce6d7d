// Package hclmodel provides the concrete HCL implementation of the
// config.Loader interface. It is responsible for file discovery, HCL
// parsing, and translation of the HCL schema into the format-agnostic
// config model.
package hclmodel
