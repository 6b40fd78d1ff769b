package codegen

import (
	"fmt"

	"github.com/google/uuid"
)

// preamble emits the fixed prologue of every generated translation
// unit: standard includes, the runtime header contract's opaque types
// and extern function declarations (spec.md §6, unchanged by
// SPEC_FULL), and the generic closure descriptor codegen itself emits
// (not part of the runtime contract, since nothing in spec.md §6 names
// a closure-pair type — the generator is the one introducing it).
//
// arena_create/arena_alloc/arena_destroy are not named in spec.md §6's
// literal list, but Arena is listed as a type with no constructor of
// its own; something has to build and tear one down, so these three are
// treated as Arena's unavoidable companions rather than a deviation
// from the contract (see DESIGN.md).
func preamble(buildID uuid.UUID) string {
	return fmt.Sprintf(`// eskemec build %s
#include <stdio.h>
#include <stdlib.h>
#include <stdbool.h>
#include <stdint.h>
#include <string.h>

typedef struct Arena Arena;
typedef struct VectorF VectorF;

extern Arena* arena_create(void);
extern void* arena_alloc(Arena* arena, size_t size);
extern void arena_destroy(Arena* arena);

extern VectorF* vector_f_create_from_array(Arena* arena, float* data, size_t n);
extern VectorF* vector_f_add(Arena* arena, VectorF* a, VectorF* b);
extern VectorF* vector_f_sub(Arena* arena, VectorF* a, VectorF* b);
extern VectorF* vector_f_mul_scalar(Arena* arena, VectorF* v, float scalar);
extern float vector_f_dot(VectorF* a, VectorF* b);
extern VectorF* vector_f_cross(Arena* arena, VectorF* a, VectorF* b);
extern float vector_f_magnitude(VectorF* v);
extern float vector_f_get(VectorF* v, size_t index);

extern VectorF* compute_gradient(Arena* arena, float (*f)(VectorF*), VectorF* x);
extern float compute_divergence(Arena* arena, VectorF* (*f)(VectorF*), VectorF* x);
extern VectorF* compute_curl(Arena* arena, VectorF* (*f)(VectorF*), VectorF* x);
extern float compute_laplacian(Arena* arena, float (*f)(VectorF*), VectorF* x);
extern VectorF* compute_gradient_autodiff(Arena* arena, float (*f)(VectorF*), VectorF* x);
extern VectorF* compute_gradient_reverse_mode(Arena* arena, float (*f)(VectorF*), VectorF* x);
extern VectorF** compute_jacobian(Arena* arena, VectorF* (*f)(Arena*, VectorF*), VectorF* x);
extern VectorF** compute_hessian(Arena* arena, float (*f)(VectorF*), VectorF* x);
extern float compute_nth_derivative(Arena* arena, float (*f)(float), float x, int order);

// Generic closure descriptor: fn is always a pointer to a lifted
// function whose first parameter is void* (its own environment struct,
// cast back to the concrete type inside the function body). Every call
// site that knows the static Function type casts fn to the exact
// signature it expects before calling through it.
typedef struct Closure {
    void* fn;
    void* env;
} Closure;

`, buildID)
}
