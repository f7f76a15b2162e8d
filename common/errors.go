package common

import "errors"

// ErrInvalidParameters indicates that a modulus / generator pair does not
// describe a usable group: the modulus is not prime or the generator is not in
// (1, p).
var ErrInvalidParameters = errors.New("invalid group parameters")

// ErrSecretOutOfRange indicates that a secret exponent is not in [1, p-1]. The
// value is never reduced modulo the group order on behalf of the caller.
var ErrSecretOutOfRange = errors.New("secret out of range")

// ErrInvalidInput indicates a malformed integer (nil or negative) handed to
// the verification equation.
var ErrInvalidInput = errors.New("invalid input")
