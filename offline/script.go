package offline

import (
	"fmt"
	"strings"
	"text/template"
)

// Tunables baked into the generated behavior script.
const (
	ConfettiParticles = 150
	ConfettiFrames    = 180
	SwipeThreshold    = 50
	RetreatZone       = 0.2
)

type scriptData struct {
	Total     int
	HasMusic  bool
	Particles int
	Frames    int
	Swipe     int
	Zone      float64
}

// Script returns the dependency-free behavior script for a story with total
// slides. With hasMusic false the script carries no playback code at all.
func Script(total int, hasMusic bool) string {
	if total < 1 {
		total = 1
	}
	var b strings.Builder
	err := scriptTmpl.Execute(&b, scriptData{
		Total:     total,
		HasMusic:  hasMusic,
		Particles: ConfettiParticles,
		Frames:    ConfettiFrames,
		Swipe:     SwipeThreshold,
		Zone:      RetreatZone,
	})
	if err != nil {
		panic(fmt.Sprintf("offline: render script: %v", err))
	}
	return b.String()
}

var scriptTmpl = template.Must(template.New("script").Parse(`(function () {
  "use strict";

  var total = {{.Total}};
  var current = 1;
  var isFirstTap = true;
  var confettiRunning = false;
  var touchStartX = null;

  var slides = document.querySelectorAll(".slide");
  var fills = document.querySelectorAll(".progress-fill");
  var hint = document.getElementById("tap-hint");
{{- if .HasMusic}}
  var audio = document.getElementById("story-audio");
  var musicStarted = false;

  function startMusic() {
    if (!audio) {
      return;
    }
    try {
      var played = audio.play();
      if (played && typeof played.then === "function") {
        played.then(function () { musicStarted = true; }, function () {});
      } else {
        musicStarted = true;
      }
    } catch (e) {}
  }
{{- end}}

  function clamp(n) {
    return Math.max(1, Math.min(total, n));
  }

  function renderProgress() {
    for (var i = 0; i < fills.length; i++) {
      var index = i + 1;
      var state = "";
      if (index < current) {
        state = " complete";
      } else if (index === current) {
        state = " half";
      }
      fills[i].className = "progress-fill" + state;
    }
  }

  function render() {
    for (var i = 0; i < slides.length; i++) {
      if (i + 1 === current) {
        slides[i].classList.add("active");
      } else {
        slides[i].classList.remove("active");
      }
    }
    renderProgress();
  }

  function go(next) {
    next = clamp(next);
    if (next === current) {
      return;
    }
    current = next;
    render();
    if (current === total) {
      launchConfetti();
    }
  }

  function firstInteraction() {
    isFirstTap = false;
    if (hint) {
      hint.style.display = "none";
    }
{{- if .HasMusic}}
    startMusic();
{{- end}}
    if (total === 1) {
      launchConfetti();
    }
  }

  function advance() {
    if (current === 1 && isFirstTap) {
      firstInteraction();
      return;
    }
    go(current + 1);
  }

  function retreat() {
    go(current - 1);
  }

  function replay() {
    current = 1;
    isFirstTap = true;
    if (hint) {
      hint.style.display = "";
    }
{{- if .HasMusic}}
    if (audio && musicStarted) {
      audio.pause();
      audio.currentTime = 0;
      startMusic();
    }
{{- end}}
    render();
  }

  function tapAt(x) {
    var width = window.innerWidth || document.documentElement.clientWidth;
    if (current === 1 && isFirstTap) {
      firstInteraction();
    } else if (x < width * {{.Zone}}) {
      retreat();
    } else {
      advance();
    }
  }

  function isReplay(target) {
    return target && target.closest && target.closest(".replay-button");
  }

  function launchConfetti() {
    var canvas = document.getElementById("confetti-canvas");
    if (confettiRunning || !canvas || !canvas.getContext) {
      return;
    }
    var ctx = canvas.getContext("2d");
    canvas.width = window.innerWidth;
    canvas.height = window.innerHeight;
    var colors = ["#ff6b6b", "#feca57", "#48dbfb", "#ff9ff3", "#1dd1a1", "#5f27cd"];
    var particles = [];
    for (var i = 0; i < {{.Particles}}; i++) {
      particles.push({
        x: Math.random() * canvas.width,
        y: -20 - Math.random() * canvas.height * 0.5,
        vx: (Math.random() - 0.5) * 6,
        vy: Math.random() * 3 + 2,
        size: Math.random() * 6 + 4,
        rotation: Math.random() * 360,
        spin: (Math.random() - 0.5) * 10,
        color: colors[Math.floor(Math.random() * colors.length)]
      });
    }
    var frame = 0;
    confettiRunning = true;
    function draw() {
      ctx.clearRect(0, 0, canvas.width, canvas.height);
      for (var j = 0; j < particles.length; j++) {
        var p = particles[j];
        p.vy += 0.12;
        p.x += p.vx;
        p.y += p.vy;
        p.rotation += p.spin;
        ctx.save();
        ctx.translate(p.x, p.y);
        ctx.rotate(p.rotation * Math.PI / 180);
        ctx.fillStyle = p.color;
        ctx.fillRect(-p.size / 2, -p.size / 2, p.size, p.size * 0.6);
        ctx.restore();
      }
      frame++;
      if (frame < {{.Frames}}) {
        window.requestAnimationFrame(draw);
      } else {
        ctx.clearRect(0, 0, canvas.width, canvas.height);
        confettiRunning = false;
      }
    }
    window.requestAnimationFrame(draw);
  }

  document.addEventListener("click", function (e) {
    if (isReplay(e.target)) {
      replay();
      return;
    }
    tapAt(e.clientX);
  });

  document.addEventListener("touchstart", function (e) {
    touchStartX = e.changedTouches[0].clientX;
  }, { passive: true });

  document.addEventListener("touchend", function (e) {
    var endX = e.changedTouches[0].clientX;
    var dx = touchStartX === null ? 0 : endX - touchStartX;
    touchStartX = null;
    e.preventDefault();
    if (isReplay(e.target)) {
      replay();
    } else if (current === 1 && isFirstTap) {
      firstInteraction();
    } else if (dx < -{{.Swipe}}) {
      advance();
    } else if (dx > {{.Swipe}}) {
      retreat();
    } else {
      tapAt(endX);
    }
  }, { passive: false });

  document.addEventListener("keydown", function (e) {
    if (e.key === "ArrowRight" || e.key === " " || e.key === "Spacebar") {
      e.preventDefault();
      advance();
    } else if (e.key === "ArrowLeft") {
      retreat();
    }
  });

  render();
})();
`))
