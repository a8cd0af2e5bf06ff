package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gin-gonic/gin"

	"pixelboard/internal/relay"
	"pixelboard/internal/transport/tcp"
	"pixelboard/internal/transport/ws"
)

func main() {
	addr := flag.String("addr", ":8000", "HTTP listen address for WebSocket clients")
	tcpAddr := flag.String("tcp", "", "optional raw listen address for TCP and WebSocket clients (disabled when empty)")
	flag.Parse()

	chatChannel := relay.NewChatChannel()
	drawChannel := relay.NewDrawChannel()

	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()
	router.GET("/chat", gin.WrapF(ws.Handler(chatChannel)))
	router.GET("/draw", gin.WrapF(ws.Handler(drawChannel)))
	router.GET("/canvas.png", func(c *gin.Context) {
		scale, err := strconv.Atoi(c.DefaultQuery("scale", "10"))
		if err != nil || scale < 1 || scale > 100 {
			c.String(http.StatusBadRequest, "bad scale")
			return
		}
		img, err := drawChannel.RenderPNG(scale)
		if err != nil {
			c.String(http.StatusBadRequest, "cannot render canvas: %v", err)
			return
		}
		c.Data(http.StatusOK, "image/png", img)
	})

	var rawServer *tcp.Server
	if *tcpAddr != "" {
		rawServer = tcp.New(*tcpAddr, map[string]relay.Channel{
			"/chat": chatChannel,
			"/draw": drawChannel,
		}, chatChannel)
		go func() {
			if err := rawServer.Start(); err != nil {
				log.Fatalf("Raw listener error: %v", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		log.Printf("Server started on %s", *addr)
		errChan <- router.Run(*addr)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-sigChan:
		log.Printf("Received signal %v, shutting down...", sig)
		if rawServer != nil {
			rawServer.Stop()
		}
	}

	log.Println("Server stopped")
}
