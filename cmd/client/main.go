// 调试用的流式客户端：连上 /ws/l1 后逐条打印合并快照。
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"

	"github.com/gorilla/websocket"

	"live-ticker-go/ticker"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:7777", "服务端地址")
	flag.Parse()

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws/l1"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("连接失败: %v", err)
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			log.Fatalf("读取失败: %v", err)
		}
		var snap ticker.Snapshot
		if err := json.Unmarshal(msg, &snap); err != nil {
			log.Printf("解析失败: %v", err)
			continue
		}
		for _, q := range snap.Venues {
			fmt.Printf("%-10s bid %.4f x %.4f | ask %.4f x %.4f\n",
				q.Venue, q.BidPrice, q.BidSize, q.AskPrice, q.AskSize)
		}
		fmt.Println("---")
	}
}
