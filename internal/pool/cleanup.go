package pool

import "fmt"

// CleanupDirective is the lightweight DOM trim broadcast on memory pressure.
type CleanupDirective struct {
	// ViewportMargin in CSS pixels; images further off-screen are detached.
	ViewportMargin int
	// MaxPerPass caps how many images one pass may detach.
	MaxPerPass int
}

// DefaultCleanup detaches at most ten lazy images beyond one viewport height.
func DefaultCleanup() CleanupDirective {
	return CleanupDirective{ViewportMargin: 1000, MaxPerPass: 10}
}

// Script renders the directive as JavaScript for ContentSurface.ExecJS.
func (d CleanupDirective) Script() string {
	if d.MaxPerPass <= 0 {
		d.MaxPerPass = DefaultCleanup().MaxPerPass
	}
	if d.ViewportMargin < 0 {
		d.ViewportMargin = 0
	}
	return fmt.Sprintf(`(function(){
  var margin = %d, limit = %d, detached = 0;
  var imgs = document.querySelectorAll('img[loading="lazy"], img[data-src]');
  for (var i = 0; i < imgs.length && detached < limit; i++) {
    var img = imgs[i];
    if (!img.getAttribute('src') || img.dataset.detachedSrc) { continue; }
    var r = img.getBoundingClientRect();
    if (r.bottom < -margin || r.top > window.innerHeight + margin) {
      img.dataset.detachedSrc = img.getAttribute('src');
      img.removeAttribute('src');
      detached++;
    }
  }
  return detached;
})();`, d.ViewportMargin, d.MaxPerPass)
}
