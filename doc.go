// Package ggboard is the rendering, caching and interaction engine of a 2D
// board editor.
//
// # Overview
//
// Cards, stickers, images and avatars live on a pannable, zoomable canvas
// and are joined by connector lines. The Engine ties the pieces together:
//
//   - model.Board stores objects, connections and the selection
//   - imagecache and offscreen cache decoded and composited bitmaps
//   - viewport culls everything outside the visible rect
//   - scheduler coalesces invalidations into one redraw per frame
//   - selection, drag and connect run the pointer gestures
//   - history keeps bounded snapshot undo/redo
//   - render paints frames with gg
//
// # Quick Start
//
//	board := model.NewBoard()
//	board.Add(model.Card("a", 0, 0, 160, 100, "Hello"))
//
//	eng, err := ggboard.New(board,
//	    ggboard.WithSize(1280, 800),
//	    ggboard.WithFetcher(imagecache.DirFetcher{Dir: "assets"}),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close()
//
//	eng.StartDrag(drag.Event{Pointer: 1, X: 20, Y: 20}, "a")
//	eng.MoveDrag(drag.Event{Pointer: 1, X: 60, Y: 20})
//	eng.EndDrag(drag.Event{Pointer: 1, X: 60, Y: 20})
//	eng.Undo()
//
// # Frames
//
// Board mutations invalidate the scheduler; the frame source decides when
// the frame runs. With the default ticker source frames arrive on another
// goroutine. Hosts that own their frame loop pass a scheduler.ManualSource
// (or their own FrameSource) with WithFrameSource. Draw paints a frame
// synchronously.
//
// # Coordinates
//
// Pointer positions passed to the Engine are screen pixels. Object
// geometry is in world units; screen = world*zoom + pan.
package ggboard
