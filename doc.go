// Package slicer renders triangle meshes into the layer images of a masked
// resin 3D printer.
//
// # Overview
//
// A model is cut at evenly spaced heights. For every cut the mesh is drawn
// with the stencil parity technique: the stencil is cleared to a reference
// value, every back face increments it and every front face decrements it,
// and a quad covering the model then writes white wherever the count says
// the pixel lies inside the solid. No contour extraction or polygon
// clipping is involved, so any closed mesh slices correctly, including
// self-intersecting and multi-shell ones.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/slicer"
//	    "github.com/gogpu/slicer/backend"
//	)
//
//	settings := slicer.DefaultSettings()
//	store, err := slicer.NewGeometryStore(settings, meshes)
//	if err != nil {
//	    return err
//	}
//	sess, err := slicer.NewSession(settings, store,
//	    slicer.WithDeviceFactory(backend.Factory("")))
//	if err != nil {
//	    return err
//	}
//	defer sess.Close()
//	err = sess.Run(ctx, func(info slicer.LayerInfo) error {
//	    fmt.Println(info.Index, info.Area)
//	    return nil
//	})
//
// # Devices
//
// Rendering happens on a [Device]. The software rasterizer is always
// available through the backend package; importing
// github.com/gogpu/slicer/gpu adds a wgpu device that runs the same passes
// as shaders.
//
// # Layer processing
//
// Besides plain slicing a session can grow every layer by a fixed distance
// (inflate), suppress isolated spots too small to cure while compensating
// the remaining ones, detect regions not supported by the previous layer,
// and render an extra copy of every layer shifted by half a pixel.
//
// # Coordinate System
//
// Model coordinates are millimeters with z pointing up from the build
// plate. Rasters use one byte per pixel with row 0 at the bottom of the
// plate.
package slicer
