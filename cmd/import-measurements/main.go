package main

/*
Posts a measurements file to a running portal. One measurement per line:

	<instrument_id> <unix_nano_timestamp> [url]

Example:

	3 1436366040000000000 http://station3.example/ws
	3 1436366052000000000
	4 1436366061000000000
*/
import (
	"bytes"
	"flag"
	"fmt"
	"io/ioutil"
	"net/http"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
)

var (
	client *http.Client
)

func main() {
	host := flag.String("host", "127.0.0.1", "Host where the portal is running")
	port := flag.Int("port", 8981, "Port where the portal is running")
	fileName := flag.String("file", "", "Measurements file to upload")
	flag.Parse()

	if *fileName == "" {
		log.Fatal("file argument is required")
	}

	file, err := os.Open(*fileName)
	if err != nil {
		log.Fatal(err)
	}
	defer file.Close()

	bs, err := ioutil.ReadAll(file)
	if err != nil {
		log.Fatal(err)
	}

	buf := bytes.NewBuffer(bs)

	req, err := http.NewRequest("POST", fmt.Sprintf("http://%s:%d/insert_measurements", *host, *port), buf)
	if err != nil {
		log.Fatal(err)
	}
	req.Header.Add("Content-Type", "application/x.monportal.measurements")

	resp, err := client.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	respBody, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		log.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Errorf("error body: %s", string(respBody))
		log.Fatalf("error code: %d", resp.StatusCode)
	}
	log.Infof("imported: %s", bytes.TrimSpace(respBody))
}

func init() {
	client = &http.Client{
		Timeout: 60 * time.Second,
	}
}
