// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package raster implements slicer.Device on the CPU.
//
// Triangles are clipped against the depth range in homogeneous clip space
// and scan converted with exact integer edge functions on an 8 bit
// sub-pixel grid. Coverage follows the top-left rule, so triangles sharing
// an edge never both cover a sample on it; this is what makes the stencil
// parity count exact on closed meshes.
//
// Window coordinates use row 0 at the bottom, matching the readback order
// of the GPU device.
package raster
