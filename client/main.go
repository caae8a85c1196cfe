// Command cliente is the reference terminal client. It owns its own reply
// FIFO, logs in with the name given on the command line, and maps a small
// command loop onto the request pipe.
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nunomdc/frotad/controller/transport"
)

type session struct {
	pid   int
	name  string
	paths transport.Paths
	reply *transport.ReplyPipe

	loginResult chan bool
}

func main() {
	log.SetFlags(0)
	if len(os.Args) != 2 {
		fmt.Println("[CLIENTE] Erro: Uso ./cliente <nome>")
		os.Exit(1)
	}

	s := &session{
		pid:         os.Getpid(),
		name:        os.Args[1],
		paths:       transport.Paths{Dir: pipeDir()},
		loginResult: make(chan bool, 1),
	}

	reply, err := transport.OpenReplyPipe(s.paths, s.pid)
	if err != nil {
		log.Fatalf("[CLIENTE] Erro ao criar pipe próprio: %v", err)
	}
	s.reply = reply

	log.Printf("[CLIENTE %s] Iniciado (PID: %d)...", s.name, s.pid)

	go s.listen()

	if err := s.send(transport.ReqLogin, ""); err != nil {
		log.Printf("[CLIENTE] Erro: Controlador offline.")
		s.reply.Close()
		os.Exit(1)
	}

	if ok := <-s.loginResult; !ok {
		s.reply.Close()
		os.Exit(0)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT)
	go func() {
		<-sigs
		fmt.Println("\n[CLIENTE] A terminar sessão...")
		s.send(transport.ReqTerminate, "")
		s.reply.Close()
		os.Exit(0)
	}()

	s.commandLoop()

	s.send(transport.ReqTerminate, "")
	s.reply.Close()
}

func pipeDir() string {
	if v := os.Getenv("FROTAD_PIPE_DIR"); v != "" {
		return v
	}
	return "/tmp"
}

// listen prints every controller message. SERVER_SHUTDOWN ends the process
// immediately; the first reply resolves the login handshake.
func (s *session) listen() {
	loggedIn := false
	for {
		resp, err := s.reply.ReadReply()
		if err != nil {
			return
		}
		if resp.Message == "SERVER_SHUTDOWN" {
			fmt.Println("\n[CLIENTE] O Servidor encerrou. A sair...")
			s.reply.Close()
			os.Exit(0)
		}
		if !loggedIn {
			if resp.Success {
				log.Printf("[CLIENTE] Login Sucesso: %s", resp.Message)
			} else {
				log.Printf("[CLIENTE] Login Falhou: %s", resp.Message)
			}
			loggedIn = resp.Success
			s.loginResult <- resp.Success
			continue
		}
		log.Printf("[CLIENTE] Msg do Server: %s", resp.Message)
	}
}

func (s *session) commandLoop() {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("CMD> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "terminar":
			return
		case strings.HasPrefix(line, "agendar "):
			s.send(transport.ReqRide, line[len("agendar "):])
		case strings.HasPrefix(line, "cancelar "):
			s.send(transport.ReqCancel, line[len("cancelar "):])
		case line == "consultar":
			s.send(transport.ReqConsult, "")
		case line != "":
			fmt.Println("[CLIENTE] Comandos disponíveis:")
			fmt.Println("  agendar <hora> <local> <distancia>")
			fmt.Println("  cancelar <id>")
			fmt.Println("  consultar")
			fmt.Println("  terminar")
		}
	}
}

func (s *session) send(t transport.RequestType, data string) error {
	err := transport.SendRequest(s.paths, transport.Request{
		PID:  int32(s.pid),
		Name: s.name,
		Type: t,
		Data: data,
	})
	if err != nil {
		log.Printf("[CLIENTE] Erro ao enviar (Server morreu?): %v", err)
	}
	return err
}
