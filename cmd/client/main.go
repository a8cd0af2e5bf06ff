package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"pixelboard/pkg/client"
)

func main() {
	serverAddr := flag.String("server", "ws://localhost:8000/chat", "server address (ws://host:port/chat or tcp://host:port)")
	username := flag.String("username", "", "display name (server defaults to Anonymous)")
	flag.Parse()

	c := client.NewChatClient(*serverAddr)

	if err := c.Connect(); err != nil {
		log.Fatalf("Failed to connect to server: %v", err)
	}
	defer c.Disconnect()

	log.Printf("Connected to %s", *serverAddr)

	if *username != "" {
		if err := c.SetUsername(*username); err != nil {
			log.Fatalf("Failed to set username: %v", err)
		}
	}

	go func() {
		for msg := range c.Messages() {
			fmt.Printf("[%s]: %s\n", msg.Username, msg.Text)
		}
	}()
	go func() {
		for errText := range c.Errors() {
			fmt.Printf("*** server: %s ***\n", errText)
		}
	}()

	fmt.Println("Type your messages ('/name X' to rename, 'quit' to exit):")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "quit" || text == "exit" {
			break
		}
		if name, ok := strings.CutPrefix(text, "/name "); ok {
			if err := c.SetUsername(strings.TrimSpace(name)); err != nil {
				log.Printf("Failed to set username: %v", err)
			}
			continue
		}
		if err := c.Send(text); err != nil {
			log.Printf("Failed to send message: %v", err)
			break
		}
	}
}
