package abl

import "github.com/pkg/errors"

//ErrOutOfMemory reports that a buffer owned by the core could not be allocated.
//Size overflows are reported the same way.
var ErrOutOfMemory = errors.New("out of memory")

//ErrIllegalParamVal reports inputs that are inconsistent with each other or with the shared dataset.
var ErrIllegalParamVal = errors.New("illegal parameter value")
