package livemap

import "html/template"

var homeTemplate = template.Must(template.New("").Parse(`
<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Replay {{ .Title }}</title>
  <style>
    body { background: #15151E; color: #FFFFFF; font-family: monospace; }
    #error { display: none; padding: 1em; }
  </style>
</head>
<body>
  <canvas id="circuit" width="{{ .Width }}" height="{{ .Height }}"></canvas>
  <div id="error"></div>
  <p><a href="{{ .TrackURL }}">track.svg</a></p>

  <script>
    const wsUrl = (location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '{{ .WebSocketURL }}';
    const canvas = document.getElementById('circuit');
    const ctx = canvas.getContext('2d');
    const errorBox = document.getElementById('error');

    const socket = new WebSocket(wsUrl);

    socket.addEventListener('message', (event) => {
      const msg = JSON.parse(event.data);
      if (msg.type === 'error') {
        canvas.style.display = 'none';
        errorBox.style.display = 'block';
        errorBox.textContent = msg.error;
        return;
      }
      if (msg.type === 'frame') {
        drawFrame(msg.frame);
      }
    });

    socket.addEventListener('close', (event) => {
      console.log('WebSocket connection closed:', event);
    });

    function drawFrame(frame) {
      for (const op of frame.ops) {
        switch (op.op) {
        case 'clear':
          ctx.clearRect(0, 0, frame.width, frame.height);
          break;
        case 'background':
          ctx.fillStyle = op.color;
          ctx.fillRect(0, 0, frame.width, frame.height);
          break;
        case 'polyline':
          ctx.beginPath();
          ctx.strokeStyle = op.color;
          ctx.lineWidth = op.width;
          op.points.forEach((p, i) => i === 0 ? ctx.moveTo(p.x, p.y) : ctx.lineTo(p.x, p.y));
          ctx.stroke();
          break;
        case 'circle':
          ctx.beginPath();
          ctx.fillStyle = op.color;
          ctx.arc(op.at.x, op.at.y, op.radius, 0, 2 * Math.PI);
          ctx.fill();
          break;
        case 'text':
          ctx.fillStyle = op.color;
          ctx.font = '12px sans-serif';
          ctx.fillText(op.text, op.at.x, op.at.y);
          break;
        }
      }
    }
  </script>
</body>
</html>
`))
